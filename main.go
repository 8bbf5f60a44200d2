package main

import (
	"github.com/sidkik/sync-remote/cmd"
	"github.com/sidkik/sync-remote/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
