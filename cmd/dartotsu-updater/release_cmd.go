package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
	"github.com/spf13/cobra"
)

// createTagCommand creates the tag subcommand
func createTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag",
		Short: "Print the release tag for the current upstream commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tag := release.DeriveTag(cmd.Context(), newCommitLookup(cfg), cfg.Upstream.Repo)
			fmt.Fprintln(cmd.OutOrStdout(), tag)
			return nil
		},
	}
}

// createChecksumsCommand creates the checksums subcommand
func createChecksumsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checksums DIR",
		Short: "Print the release checksum table for the files in DIR",
		Args:  cobra.ExactArgs(1),
		RunE:  executeChecksums,
	}
}

func executeChecksums(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	list, err := hashDir(args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no files found in %s", args[0])
	}
	fmt.Fprint(cmd.OutOrStdout(), release.ComposeBody("", list, cfg.PresentationOrder()))
	return nil
}

// hashDir hashes the regular files directly inside dir.
func hashDir(dir string) ([]artifact.Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var list []artifact.Artifact
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		digest, err := hasher.File(path)
		if err != nil {
			return nil, err
		}
		list = append(list, artifact.Artifact{Name: e.Name(), Path: path, Digest: digest})
	}
	return list, nil
}

// createStatusCommand creates the status subcommand
func createStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [TAG]",
		Short: "Show a release and its assets (latest release when TAG is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  executeStatus,
	}
}

func executeStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := newReleaseStore(cfg)
	var rel *release.Release
	if len(args) == 1 {
		rel, err = store.GetReleaseByTag(cmd.Context(), args[0])
	} else {
		rel, err = store.LatestRelease(cmd.Context())
	}
	if errors.Is(err, release.ErrNotFound) {
		if len(args) == 1 {
			return fmt.Errorf("release %s not found in %s", args[0], cfg.Release.Repo)
		}
		return fmt.Errorf("no releases in %s", cfg.Release.Repo)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Release %s", rel.TagName)
	if rel.HTMLURL != "" {
		fmt.Fprintf(out, " (%s)", rel.HTMLURL)
	}
	fmt.Fprintln(out)

	byName := make(map[string]release.Asset, len(rel.Assets))
	names := make([]string, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		byName[a.Name] = a
		names = append(names, a.Name)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tDIGEST")
	for _, name := range cfg.PresentationOrder().SortNames(names) {
		a := byName[name]
		digest := a.Digest
		if digest == "" {
			digest = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Size, digest)
	}
	return tw.Flush()
}
