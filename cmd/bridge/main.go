package main

import (
	"os"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
