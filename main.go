package main

import (
	"github.com/musaddique333/Gatherly/cmd"
	"github.com/musaddique333/Gatherly/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
