package main

import (
	"os"

	"github.com/thiagokokada/betarelease/cmd"
)

func main() {
	os.Exit(cmd.Run())
}
