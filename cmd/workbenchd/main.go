// Command workbenchd runs the Workbench HTTP server from the default
// configuration without the CLI, for service managers.
package main

import (
	"context"
	"log"

	"workbench/internal/config"
	"workbench/internal/serverrun"
)

func main() {
	if err := config.LoadEnvFile(""); err != nil {
		log.Printf("load env file: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := serverrun.Run(context.Background(), cfg, serverrun.Options{}); err != nil {
		log.Fatalf("workbench server: %v", err)
	}
}
