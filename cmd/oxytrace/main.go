package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/cmd/oxytrace/commands"
)

func main() {
	if err := commands.NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "oxytrace: %v\n", err)
		os.Exit(1)
	}
}
