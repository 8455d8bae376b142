// Package main is the entry point for the tenantql CLI binary.
package main

import (
	"os"

	cli "tenantql/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
