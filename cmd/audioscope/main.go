package main

import (
	"github.com/audioscope/audioscope/cmd/audioscope/commands"
)

func main() {
	commands.Execute()
}
