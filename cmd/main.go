package main

import (
	"os"

	"github.com/tomatolover555/windrose-ai/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
