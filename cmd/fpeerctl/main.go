package main

import (
	"os"

	"github.com/autopeer-io/fleetpeer/cmd/fpeerctl/app"
)

func main() {
	if err := app.NewFpeerctlCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
