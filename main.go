// Package main is the entry point for the tcgvault application
package main

import (
	"github.com/tcgvault/tcgvault/cmd"
)

func main() {
	cmd.Execute()
}
