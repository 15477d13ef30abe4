package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jacc/internal/cache"
	"jacc/internal/config"
	"jacc/internal/logging"
	"jacc/internal/program"
)

var (
	outPath     string
	noTypeCheck bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a .jac file to Go source, going through the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write generated Go source here instead of stdout")
	compileCmd.Flags().BoolVar(&noTypeCheck, "no-type-check", false, "Skip the type-check pass")
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("jacc: read %s: %w", path, err)
	}

	root := config.FindProjectRoot(filepath.Dir(path))
	cfg, err := config.Load(filepath.Join(root, config.ManifestName))
	if err != nil {
		return fmt.Errorf("jacc: load config: %w", err)
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(root, ".jac-cache")
	}

	var log *logging.Logger
	if logSvc != nil {
		log = logSvc.Get(logging.CategoryProgram)
	}

	c := cache.New(cacheDir, "jac-v1", log)
	p := program.New(c, log)

	mod, err := p.CompileFile(path, src)
	if err != nil {
		return fmt.Errorf("jacc: compile %s: %w", path, err)
	}
	for _, a := range p.Errors {
		fmt.Fprintln(os.Stderr, a.String())
	}
	for _, a := range p.Warnings {
		fmt.Fprintln(os.Stderr, a.String())
	}
	if mod.HasSyntaxErrors {
		return fmt.Errorf("jacc: %s has syntax errors", path)
	}

	opts := cfg.Compile
	opts.TypeCheck = opts.TypeCheck && !noTypeCheck
	modTime, err := cache.StatModTime(path)
	if err != nil {
		return fmt.Errorf("jacc: stat %s: %w", path, err)
	}
	out, err := p.GetBytecode(path, opts, modTime)
	if err != nil {
		return fmt.Errorf("jacc: codegen %s: %w", path, err)
	}

	if outPath == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(outPath, out, 0644)
}
