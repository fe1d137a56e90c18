// Init command: build an empty snapshot from a YAML schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starfinanz/realm-core/pkg/graph"
)

var flagSchema string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a snapshot from a YAML schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(flagSchema)
		if err != nil {
			return fmt.Errorf("reading schema: %w", err)
		}

		g, err := graph.LoadSchema(data)
		if err != nil {
			return err
		}

		out, err := os.Create(snapshotPath())
		if err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		defer out.Close()

		if err := g.WriteSnapshot(out); err != nil {
			return err
		}
		fmt.Printf("Initialized %s (group %s, %d tables)\n", snapshotPath(), g.ID(), g.Size())
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&flagSchema, "schema", "schema.yaml", "schema file")
}
