// Package main provides the pdvd-auth command line tool: a client for the PDVD
// authentication endpoints plus a local reference server for development.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}
