// main is the entry point for the packlint CLI.
package main

import (
	"github.com/huangsam/packlint/cmd"
	"github.com/huangsam/packlint/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Error", err)
	}
}
