// Inspect command: dump the tables, columns and link contents of a
// snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starfinanz/realm-core/pkg/graph"
	"github.com/starfinanz/realm-core/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the contents of a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openSnapshot()
		if err != nil {
			return err
		}

		fmt.Printf("group %s, %d tables\n", g.ID(), g.Size())
		for i := 0; i < g.Size(); i++ {
			t, err := g.Table(types.TableID(i))
			if err != nil {
				return err
			}
			fmt.Printf("table %d %q: %d rows\n", i, t.Name(), t.Size())
			for c := 0; c < t.ColumnCount(); c++ {
				col := types.ColID(c)
				if err := dumpColumn(t, col); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func dumpColumn(t *graph.Table, col types.ColID) error {
	name, err := t.ColumnName(col)
	if err != nil {
		return err
	}
	isList, err := t.ColumnIsList(col)
	if err != nil {
		return err
	}
	kind, err := t.ColumnKind(col)
	if err != nil {
		return err
	}
	target, err := t.ColumnTarget(col)
	if err != nil {
		return err
	}

	shape := "link"
	if isList {
		shape = "linklist"
	}
	fmt.Printf("  column %d %q: %s %s -> table %d\n", col, name, kind, shape, target)

	for row := 0; row < t.Size(); row++ {
		if isList {
			view, err := t.LinkList(col, types.RowID(row))
			if err != nil {
				return err
			}
			targets, err := view.Targets()
			if err != nil {
				return err
			}
			if len(targets) > 0 {
				fmt.Printf("    [%d] -> %v\n", row, targets)
			}
			continue
		}
		tgt, err := t.GetLink(col, types.RowID(row))
		if err != nil {
			return err
		}
		if tgt != types.RowNone {
			fmt.Printf("    [%d] -> %d\n", row, tgt)
		}
	}
	return nil
}

func openSnapshot() (*graph.Group, error) {
	f, err := os.Open(snapshotPath())
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return graph.LoadSnapshot(f)
}
