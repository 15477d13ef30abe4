package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jacc/internal/cache"
	"jacc/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the on-disk bytecode cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached bytecode entries",
	RunE:  runCacheLs,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached bytecode entry",
	RunE:  runCacheClear,
}

func resolveCacheDir() (string, error) {
	root := config.FindProjectRoot(".")
	cfg, err := config.Load(filepath.Join(root, config.ManifestName))
	if err != nil {
		return "", err
	}
	if cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	return filepath.Join(root, ".jac-cache"), nil
}

// runCacheLs rebuilds the optional sqlite enumeration index from the flat
// .jbc layout and lists it — the directory itself stays authoritative
// (§6: "No index file; enumeration is optional"). Every `cache ls` run
// re-parses each JSON envelope to rebuild the index before listing its
// language-version/mtime metadata.
func runCacheLs(cmd *cobra.Command, args []string) error {
	dir, err := resolveCacheDir()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		fmt.Println("(cache empty)")
		return nil
	}

	ix, err := cache.OpenIndex(filepath.Join(dir, "index.sqlite"))
	if err != nil {
		return fmt.Errorf("jacc: open cache index: %w", err)
	}
	defer ix.Close()

	if err := ix.Rebuild(dir); err != nil {
		return fmt.Errorf("jacc: rebuild cache index: %w", err)
	}
	rows, err := ix.List()
	if err != nil {
		return fmt.Errorf("jacc: list cache index: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("(cache empty)")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("%s\tlang=%s\tmtime=%d\n", r.Filename, r.LangVersion, r.SourceModTime)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	dir, err := resolveCacheDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jacc: list %s: %w", dir, err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".jbc" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("jacc: remove %s: %w", e.Name(), err)
		}
	}
	fmt.Printf("cleared cache at %s\n", dir)
	return nil
}
