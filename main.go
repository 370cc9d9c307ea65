package main

import (
	"os"

	"github.com/kurirhub/kurir/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
