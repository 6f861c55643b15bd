// Package main provides the pneusim CLI: a Modbus TCP slave emulating a
// pneumatic cylinder, plus a small poll tool for watching it.
package main

import (
	"fmt"
	"os"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
