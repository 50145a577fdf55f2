package main

import (
	"github.com/autopeer-io/fleetpeer/cmd/fpeer-monitor/app"
)

func main() {
	app.NewApp().Run()
}
