package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jacc/internal/logging"
	"jacc/internal/seed"
)

var seedExecCmd = &cobra.Command{
	Use:   "seed-exec [file]",
	Short: "Compile a restricted-subset .jac file and run it on the host interpreter",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeedExec,
}

func runSeedExec(cmd *cobra.Command, args []string) error {
	path := args[0]

	var log *logging.Logger
	if logSvc != nil {
		log = logSvc.Get(logging.CategorySeed)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("jacc: read %s: %w", path, err)
	}

	c := seed.New(log)
	val, err := c.Exec(context.Background(), src, path)
	if err != nil {
		return fmt.Errorf("jacc: exec %s: %w", path, err)
	}
	fmt.Println(val)
	return nil
}
