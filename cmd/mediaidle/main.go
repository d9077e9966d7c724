package main

import (
	"os"

	"github.com/Iron-Ham/mediaidle/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
