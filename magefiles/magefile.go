//go:build mage

// Package main provides build targets for the linkgraph project using Mage.
//
// Usage:
//
//	mage build     Compile the linkgraph binary to bin/
//	mage test      Run all tests
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
//	mage install   Install linkgraph to GOPATH/bin
package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "linkgraph"
	binaryDir  = "bin"
	cmdDir     = "./cmd/linkgraph"
)

// Build compiles the linkgraph binary into bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", binaryDir+"/"+binaryName, cmdDir)
}

// Test runs the full test suite with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs golangci-lint over the module.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm(binaryDir)
}

// Install builds and installs linkgraph into GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.RunV("go", "install", cmdDir)
}

// CI runs the checks the pipeline runs: tests then lint.
func CI() error {
	mg.SerialDeps(Test, Lint)
	fmt.Println("CI checks passed")
	return nil
}
