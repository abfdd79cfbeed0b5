package main

import (
	"github.com/torchstack/torchlink/pkg/cli"
	"github.com/torchstack/torchlink/pkg/util/console"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		console.Fatalf("%s", err)
	}

	if err = cmd.Execute(); err != nil {
		console.Fatalf("%s", err)
	}
}
