package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/chrona-app/chrona/common/version"
	"github.com/chrona-app/chrona/internal/chrona/app"
)

func main() {
	fmt.Printf("Chrona Calendar Assistant\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	// A local .env is optional; real deployments set the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	config, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	chrona, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Chrona: %v\n", err)
		os.Exit(1)
	}
	defer chrona.Stop()

	// Print a ready-to-use token once so the operator can call the API
	// right away.
	if token, err := chrona.BootstrapToken(); err == nil {
		fmt.Printf("Bootstrap API token: %s\n\n", token)
	}

	if err := chrona.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Chrona: %v\n", err)
		os.Exit(1)
	}
}
