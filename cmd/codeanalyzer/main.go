package main

import (
	"os"

	"github.com/mvp-joe/codeanalyzer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
