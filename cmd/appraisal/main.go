package main

import (
	"os"

	"github.com/hwcatalog/appraisal/cmd/appraisal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
