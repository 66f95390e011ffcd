package main

import (
	"os"

	"github.com/nightconcept/almandine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
