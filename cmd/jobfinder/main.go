package main

import (
	"os"

	// Embedded zoneinfo so Asia/Seoul resolves on minimal images.
	_ "time/tzdata"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
