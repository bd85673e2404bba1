package main

import (
	"os"

	"github.com/rustyeddy/ifvg/cmd/ifvg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
