package model

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog describes the databases the structured-query tool may address.
// It is read-only once a run starts and is shared between threads.
type Catalog struct {
	Databases map[string]DatabaseInfo `json:"databases" yaml:"databases"`
}

type DatabaseInfo struct {
	Tables map[string]TableInfo `json:"tables" yaml:"tables"`
}

type TableInfo struct {
	RowCount int64        `json:"row_count" yaml:"row_count"`
	Columns  []ColumnInfo `json:"columns" yaml:"columns"`
}

type ColumnInfo struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
}

// LoadCatalogFile reads a YAML catalog descriptor and validates it.
func LoadCatalogFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects descriptors the planner and SQL tool cannot rely on.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	for db, info := range c.Databases {
		if strings.TrimSpace(db) == "" {
			return fmt.Errorf("catalog: database with empty name")
		}
		for table, t := range info.Tables {
			if strings.TrimSpace(table) == "" {
				return fmt.Errorf("catalog: database %q has a table with empty name", db)
			}
			if t.RowCount < 0 {
				return fmt.Errorf("catalog: table %s.%s has negative row_count", db, table)
			}
			seen := make(map[string]struct{}, len(t.Columns))
			for i, col := range t.Columns {
				if strings.TrimSpace(col.Name) == "" {
					return fmt.Errorf("catalog: table %s.%s column %d has empty name", db, table, i)
				}
				if _, dup := seen[col.Name]; dup {
					return fmt.Errorf("catalog: table %s.%s has duplicate column %q", db, table, col.Name)
				}
				seen[col.Name] = struct{}{}
			}
		}
	}
	return nil
}

func (c *Catalog) HasDatabase(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Databases[name]
	return ok
}

// DatabaseNames returns database names sorted alphabetically.
func (c *Catalog) DatabaseNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the catalog as compact text for prompts, in a stable order.
func (c *Catalog) Describe() string {
	if c == nil || len(c.Databases) == 0 {
		return "(no databases available)"
	}
	var b strings.Builder
	for _, db := range c.DatabaseNames() {
		fmt.Fprintf(&b, "database %s\n", db)
		tables := c.Databases[db].Tables
		names := make([]string, 0, len(tables))
		for name := range tables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := tables[name]
			cols := make([]string, 0, len(t.Columns))
			for _, col := range t.Columns {
				s := col.Name + " " + col.Type
				if col.PrimaryKey {
					s += " PK"
				}
				cols = append(cols, s)
			}
			fmt.Fprintf(&b, "  table %s (%d rows): %s\n", name, t.RowCount, strings.Join(cols, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
