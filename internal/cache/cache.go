// Package cache implements the three-tier bytecode cache of §4.9: an
// in-memory module table (checked first, instant hit), an on-disk artifact
// store keyed by (canonical path, compile-options tuple, language
// version), and recompilation as the final fallback. Grounded on the
// teacher's internal/world/cache.go FileCache (mutex-protected in-memory
// map backed by a JSON manifest), generalized here to store opaque
// bytecode artifacts under individual <basename>_<hash>.jbc files instead
// of one shared manifest, per §6's cache-layout contract.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"jacc/internal/config"
	"jacc/internal/logging"
)

// Artifact is one cached compiled unit.
type Artifact struct {
	Bytecode      []byte
	SourceModTime int64
	Options       config.CompileOptions
}

// entry is the on-disk envelope for one .jbc file.
type entry struct {
	Bytecode      []byte                 `json:"bytecode"`
	SourceModTime int64                  `json:"source_mtime"`
	Options       config.CompileOptions  `json:"options"`
	LangVersion   string                 `json:"lang_version"`
}

// Cache is the three-tier lookup: an in-memory table guards disk I/O, and
// Get/Put fall through to disk when memory misses.
type Cache struct {
	mu      sync.RWMutex
	dir     string
	mem     map[string]Artifact
	log     *logging.Logger
	langVer string
}

// New creates a Cache rooted at dir (created lazily on first write, per
// §5 "File-system interaction"). log may be nil.
func New(dir, langVersion string, log *logging.Logger) *Cache {
	return &Cache{dir: dir, mem: make(map[string]Artifact), log: log, langVer: langVersion}
}

func key(canonicalPath string, opts config.CompileOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%+v", canonicalPath, opts)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func entryFilename(canonicalPath string, opts config.CompileOptions) string {
	base := filepath.Base(canonicalPath)
	base = base[:len(base)-len(filepath.Ext(base))]
	return fmt.Sprintf("%s_%s.jbc", base, key(canonicalPath, opts))
}

// Get performs the three-tier lookup's first two tiers (memory, then disk);
// recompilation is the caller's responsibility (tier 3) since only the
// caller knows how to re-run the pipeline. sourceModTime is the current
// on-disk mtime of the source file, used to invalidate stale entries.
func (c *Cache) Get(canonicalPath string, opts config.CompileOptions, sourceModTime int64) (Artifact, bool) {
	mk := canonicalPath + "|" + key(canonicalPath, opts)
	c.mu.RLock()
	if a, ok := c.mem[mk]; ok {
		c.mu.RUnlock()
		if a.SourceModTime >= sourceModTime {
			c.debugf("cache hit (memory): %s", canonicalPath)
			return a, true
		}
		return Artifact{}, false
	}
	c.mu.RUnlock()

	if c.dir == "" {
		return Artifact{}, false
	}
	path := filepath.Join(c.dir, entryFilename(canonicalPath, opts))
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.debugf("cache: corrupt entry %s, treating as miss: %v", path, err)
		return Artifact{}, false
	}
	if e.LangVersion != c.langVer || e.SourceModTime < sourceModTime || e.Options != opts {
		c.debugf("cache: stale or version-mismatched entry %s", path)
		return Artifact{}, false
	}
	a := Artifact{Bytecode: e.Bytecode, SourceModTime: e.SourceModTime, Options: e.Options}
	c.mu.Lock()
	c.mem[mk] = a
	c.mu.Unlock()
	c.debugf("cache hit (disk): %s", canonicalPath)
	return a, true
}

// Put records a freshly compiled artifact in both tiers. Disk writes are
// atomic: write-temp-then-rename, per §4.9/§5, so a crash mid-write never
// leaves a corrupt entry where a reader expects a complete one.
func (c *Cache) Put(canonicalPath string, a Artifact) error {
	mk := canonicalPath + "|" + key(canonicalPath, a.Options)
	c.mu.Lock()
	c.mem[mk] = a
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("cache: create cache dir: %w", err)
	}
	e := entry{Bytecode: a.Bytecode, SourceModTime: a.SourceModTime, Options: a.Options, LangVersion: c.langVer}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	finalPath := filepath.Join(c.dir, entryFilename(canonicalPath, a.Options))
	tmp, err := os.CreateTemp(c.dir, "jbc-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: rename temp file: %w", err)
	}
	c.debugf("cache: wrote %s", finalPath)
	return nil
}

// Invalidate drops canonicalPath from the in-memory tier, across all
// options-tuple variants. Used for test isolation (program.ClearTypeSystem)
// and when a watched source file changes underneath a long-lived Cache.
func (c *Cache) Invalidate(canonicalPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := canonicalPath + "|"
	for k := range c.mem {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.mem, k)
		}
	}
}

func (c *Cache) debugf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Debug(format, args...)
	}
}

// StatModTime is a small helper so callers don't need to import os
// themselves just to feed Get/Put a source mtime.
func StatModTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}
