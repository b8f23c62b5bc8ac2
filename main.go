package main

import (
	"os"

	"github.com/aditinnerkar/ans-ss25-copy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
