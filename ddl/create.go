package ddl

import (
	"fmt"
	"strings"

	"github.com/hiveline/hiveline/catalog"
)

// Generator produces the create statement replicated for a new table. Hosts
// with richer schema metadata than the event carries can substitute their own
// implementation.
type Generator interface {
	CreateTable(table catalog.Table) (string, error)
}

// BasicGenerator builds CREATE EXTERNAL TABLE statements from the schema
// carried on the event: columns, partition keys, serde/format passthrough and
// the storage location. It does not attempt to reproduce every storage
// descriptor permutation the source catalog supports.
type BasicGenerator struct{}

// CreateTable implements Generator.
func (BasicGenerator) CreateTable(table catalog.Table) (string, error) {
	if len(table.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", FQTN(table))
	}
	if table.Location == "" {
		return "", fmt.Errorf("table %s has no storage location", FQTN(table))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE EXTERNAL TABLE IF NOT EXISTS %s (", FQTN(table))
	for i, col := range table.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "`%s` %s", col.Name, col.Type)
	}
	b.WriteString(")")

	if len(table.PartitionKeys) > 0 {
		b.WriteString(" PARTITIONED BY (")
		for i, key := range table.PartitionKeys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "`%s` %s", key.Name, key.Type)
		}
		b.WriteString(")")
	}

	if table.SerdeLib != "" {
		fmt.Fprintf(&b, " ROW FORMAT SERDE '%s'", Escape(table.SerdeLib))
	}
	if table.InputFormat != "" && table.OutputFormat != "" {
		fmt.Fprintf(&b, " STORED AS INPUTFORMAT '%s' OUTPUTFORMAT '%s'",
			Escape(table.InputFormat), Escape(table.OutputFormat))
	}

	fmt.Fprintf(&b, " LOCATION '%s'", Escape(NormalizeLocation(table.Location)))

	return b.String(), nil
}
