// Command jacc is the compiler-core CLI: compile, inspect the bytecode
// cache, and run a source file through the restricted-subset seed compiler
// directly on the host yaegi interpreter.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jacc/internal/logging"
)

var (
	verbose  bool
	workspace string

	logger *zap.Logger
	logSvc *logging.Service
)

var rootCmd = &cobra.Command{
	Use:   "jacc",
	Short: "jacc - the Jac compiler core CLI",
	Long: `jacc drives the Jac compiler core: lexing, parsing, symbol resolution,
codegen, and the bytecode cache, without any of the surrounding agent tooling.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		level := "info"
		if verbose {
			level = "debug"
		}
		logSvc = logging.Init(logging.Options{BaseDir: ws, Level: level})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if logSvc != nil {
			logSvc.Shutdown()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Directory whose logs/ subfolder receives log files (default: current directory)")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(seedExecCmd)

	cacheCmd.AddCommand(cacheLsCmd, cacheClearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
