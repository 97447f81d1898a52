package main

import (
	"os"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
