// Package catalog defines the source-catalog data model and the inbound
// event capability the hosting environment invokes, one method per event kind.
// Implementations must treat the callbacks as hot paths: they run on the
// host's own dispatch threads and must never block.
package catalog

// Table kinds as reported by the source catalog.
const (
	KindExternal = "EXTERNAL_TABLE"
	KindManaged  = "MANAGED_TABLE"
)

// FieldSchema is one declared column or partition key.
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is a transient reference to a source-catalog table, derived per event
// and never persisted.
type Table struct {
	Database      string        `json:"database"`
	Name          string        `json:"name"`
	Kind          string        `json:"kind"`
	Location      string        `json:"location"`
	Columns       []FieldSchema `json:"columns,omitempty"`
	PartitionKeys []FieldSchema `json:"partition_keys,omitempty"`
	SerdeLib      string        `json:"serde_lib,omitempty"`
	InputFormat   string        `json:"input_format,omitempty"`
	OutputFormat  string        `json:"output_format,omitempty"`
}

// Replicable reports whether this table kind is eligible for replication.
func (t *Table) Replicable() bool {
	return t.Kind == KindExternal || t.Kind == KindManaged
}

// Partition is one partition of a table. Values are positional against the
// owning table's PartitionKeys.
type Partition struct {
	Values   []string `json:"values"`
	Location string   `json:"location"`
}

// Listener receives schema-change events from the source catalog. The status
// argument on partition events reports whether the underlying catalog
// operation actually succeeded; a false status suppresses replication.
type Listener interface {
	OnCreateTable(table Table)
	OnDropTable(table Table)
	OnAddPartition(table Table, partitions []Partition, status bool)
	OnDropPartition(table Table, partition Partition, status bool)
}
