package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"workbench/internal/config"
)

func main() {
	if err := config.LoadEnvFile(""); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
