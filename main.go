package main

import (
	"github.com/BioHazard786/warpmeet/cmd"
	"github.com/BioHazard786/warpmeet/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
