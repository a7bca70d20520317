package main

import (
	"os"

	"github.com/revisitapp/revisit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
