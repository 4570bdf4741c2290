package main

import (
	"os"

	"scenesync/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
