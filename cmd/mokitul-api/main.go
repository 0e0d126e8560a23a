// Package main is the entry point for the MoKITUL Conversation API.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/cmd/mokitul-api/app"
)

func main() {
	app.NewApp().Run()
}
