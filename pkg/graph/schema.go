package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starfinanz/realm-core/pkg/types"
)

// Schema is the declarative form of a group layout, loaded from YAML.
type Schema struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec declares one table, its initial row count, and its link
// columns.
type TableSpec struct {
	Name    string       `yaml:"name"`
	Rows    int          `yaml:"rows"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec declares one link column. Type is "link" or "linklist"; Kind
// is "strong" (default) or "weak"; Target names the target table.
type ColumnSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
	Kind   string `yaml:"kind"`
}

// LoadSchema builds a fresh group from a YAML schema document. Tables are
// created first so columns may target any table, including their own.
func LoadSchema(data []byte) (*Group, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return schema.Build()
}

// Build instantiates the schema into a new group.
func (s *Schema) Build() (*Group, error) {
	g := NewGroup()

	for _, ts := range s.Tables {
		if _, err := g.AddTable(ts.Name); err != nil {
			return nil, err
		}
	}

	for _, ts := range s.Tables {
		t, err := g.TableByName(ts.Name)
		if err != nil {
			return nil, err
		}
		for _, cs := range ts.Columns {
			target, err := g.TableByName(cs.Target)
			if err != nil {
				return nil, fmt.Errorf("column %q of table %q: %w", cs.Name, ts.Name, err)
			}
			kind, err := parseKind(cs.Kind)
			if err != nil {
				return nil, fmt.Errorf("column %q of table %q: %w", cs.Name, ts.Name, err)
			}
			switch cs.Type {
			case "link":
				_, err = t.AddLinkColumn(cs.Name, target, kind)
			case "linklist":
				_, err = t.AddLinkListColumn(cs.Name, target, kind)
			default:
				err = fmt.Errorf("unknown column type %q: %w", cs.Type, types.ErrIllegalCombination)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	for _, ts := range s.Tables {
		if ts.Rows > 0 {
			t, err := g.TableByName(ts.Name)
			if err != nil {
				return nil, err
			}
			if err := t.AddRows(ts.Rows); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func parseKind(kind string) (types.LinkKind, error) {
	switch kind {
	case "", "strong":
		return types.Strong, nil
	case "weak":
		return types.Weak, nil
	default:
		return 0, fmt.Errorf("unknown link kind %q: %w", kind, types.ErrIllegalCombination)
	}
}
