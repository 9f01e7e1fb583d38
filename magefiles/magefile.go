//go:build mage

// Package main provides build targets for ourstory using Mage.
//
// Usage:
//
//	mage build     Compile the server binary to bin/
//	mage test      Run unit tests
//	mage testE2E   Run the end-to-end flow test (builds first)
//	mage lint      Run golangci-lint
//	mage run       Build and start the server
//	mage clean     Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "ourstory"
	binaryDir  = "bin"
	cmdDir     = "./cmd/server"
)

func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || out == "" {
		return "dev"
	}
	return out
}

// Build compiles the server binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-s -w -X github.com/leca/ourstory/internal/cli.Version=" + version()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestE2E builds first, then runs the end-to-end flow test.
func TestE2E() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "-tags", "e2e", "./test/e2e/...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run builds and starts the server with the local .env file.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}
