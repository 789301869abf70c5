// Package main is the entry point for the compliopsctl CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/compliops/cmd/compliopsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
