// Command pixarr ingests media from staging folders into the catalog.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
