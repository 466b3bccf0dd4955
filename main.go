package main

import (
	"github.com/decent-client/launcher/cmd"
)

func main() {
	cmd.Execute()
}
