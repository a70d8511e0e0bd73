package release

import (
	"context"

	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
)

// FallbackTag is used when the upstream commit cannot be resolved.
const FallbackTag = "0000000"

const tagLen = 7

// CommitLookup resolves the newest commit of a repository.
type CommitLookup interface {
	LatestCommit(ctx context.Context, repo string) (string, error)
}

// DeriveTag returns the first seven hex characters of repo's latest commit,
// or FallbackTag when the lookup fails or the sha is unusable.
func DeriveTag(ctx context.Context, lookup CommitLookup, repo string) string {
	log := logger.Logger()

	sha, err := lookup.LatestCommit(ctx, repo)
	if err != nil {
		log.Warnf("Failed to fetch commits from %s: %v", repo, err)
		return FallbackTag
	}
	if len(sha) < tagLen || !isHex(sha[:tagLen]) {
		log.Warnf("Unexpected commit sha %q from %s", sha, repo)
		return FallbackTag
	}
	return sha[:tagLen]
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
