// Verify command: run the invariant checker over a snapshot.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the link invariants of a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openSnapshot()
		if err != nil {
			return err
		}
		if err := g.Verify(); err != nil {
			return err
		}
		fmt.Printf("OK: %d tables verified\n", g.Size())
		return nil
	},
}
