package main

import (
	"os"

	"github.com/Dshy007/blockassign/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
