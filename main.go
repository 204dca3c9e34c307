package main

import (
	"github.com/westernheights/website/cmd"

	// Subcommands register themselves with the root command in init()
	_ "github.com/westernheights/website/cmd/cli"
	_ "github.com/westernheights/website/cmd/server"
)

func main() {
	cmd.Execute()
}
