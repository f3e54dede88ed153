package main

import (
	"os"

	"github.com/svala-ai/svala/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
