// Entry point for the linkgraph CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/starfinanz/realm-core/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, types.ErrIndexOutOfRange) ||
			errors.Is(err, types.ErrIllegalCombination) ||
			errors.Is(err, types.ErrCrossTableLink) ||
			errors.Is(err, types.ErrTableNotFound) {
			os.Exit(exitUserError)
		}
		os.Exit(exitSysError)
	}
}
