package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		if code, ok := IsExitError(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
