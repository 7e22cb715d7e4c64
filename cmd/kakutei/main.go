// Package main is the entry point for the kakutei CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/kakutei/cmd/kakutei/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
