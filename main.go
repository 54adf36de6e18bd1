package main

import (
	"github.com/sidkik/pishow/cmd"
	"github.com/sidkik/pishow/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
