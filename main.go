package main

import (
	"os"

	"github.com/Azure/hb-kit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
