package main

import (
	"os"

	"affiliate-link-resolver/cmd/resolver/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
