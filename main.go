package main

import (
	"github.com/BioHazard786/posebridge/cmd"
	"github.com/BioHazard786/posebridge/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
