package config

import (
	"os"
	"path/filepath"
)

// ManifestName is the project-manifest filename convention §6 leaves
// "fixed by convention, out of scope" — pinned here so the walk-up below
// has something concrete to look for.
const ManifestName = "jac.yaml"

// FindProjectRoot walks from start upward until it finds a directory
// containing ManifestName, matching §6's "Project root discovery":
// explicit base path if given, else walk up from the working directory;
// failing that, use the working directory itself.
func FindProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// ManifestPath joins a discovered project root with the manifest filename.
func ManifestPath(root string) string {
	return filepath.Join(root, ManifestName)
}
