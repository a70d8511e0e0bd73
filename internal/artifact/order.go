package artifact

import "sort"

// Order is the fixed presentation order of known artifact names. It drives
// the checksum table and the upload sequence.
type Order []string

// DefaultOrder lists the Dartotsu release assets in display order.
var DefaultOrder = Order{
	"Dartotsu.apk",
	"Dartotsu_Android_arm64-v8a_main.apk",
	"Dartotsu_Android_armeabi-v7a_main.apk",
	"Dartotsu_Android_x86_64_main.apk",
	"Dartotsu-iOS-main.ipa",
	"Dartotsu_windows.exe",
	"Dartotsu_linux.zip",
	"Dartotsu_Linux.AppImage",
	"Dartotsu-macos-main.dmg",
}

// Rank returns the position of name, or len(o) when name is not listed.
func (o Order) Rank(name string) int {
	for i, n := range o {
		if n == name {
			return i
		}
	}
	return len(o)
}

// SortNames returns a copy of names with listed names first, in order, followed
// by unlisted names in their input order.
func (o Order) SortNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return o.Rank(out[i]) < o.Rank(out[j])
	})
	return out
}

// Sort returns a copy of list ordered the same way as SortNames.
func (o Order) Sort(list []Artifact) []Artifact {
	out := append([]Artifact(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return o.Rank(out[i].Name) < o.Rank(out[j].Name)
	})
	return out
}
