// Package ddl builds the remote statements replicated by the agent. All
// statement shapes are idempotent ("if exists" / "if not exists") so a
// duplicate event replayed at least once converges to the same remote state.
package ddl

import (
	"fmt"
	"strings"

	"github.com/hiveline/hiveline/catalog"
)

// escapeCommand escapes values inlined into statements. The remote endpoint
// takes plain DDL text with no prepared-statement parameters, so quoting is
// the translator's responsibility.
var escapeCommand = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`;`, `\;`,
	"\b", `\b`,
	"\n", `\n`,
	"\t", `\t`,
	"\f", `\f`,
	"\r", `\r`,
)

// Escape escapes a value for inlining into a statement.
func Escape(s string) string {
	return escapeCommand.Replace(s)
}

// FQTN returns the fully qualified table name for a table.
func FQTN(table catalog.Table) string {
	return table.Database + "." + table.Name
}

// IsObjectStoreLocation reports whether a storage location lives on the
// object store and is therefore eligible for replication.
func IsObjectStoreLocation(location string) bool {
	return strings.HasPrefix(location, "s3://") ||
		strings.HasPrefix(location, "s3a://") ||
		strings.HasPrefix(location, "s3n://")
}

// NormalizeLocation rewrites s3a:// and s3n:// variant prefixes to s3://.
func NormalizeLocation(location string) string {
	if strings.HasPrefix(location, "s3a://") {
		return "s3://" + strings.TrimPrefix(location, "s3a://")
	}
	if strings.HasPrefix(location, "s3n://") {
		return "s3://" + strings.TrimPrefix(location, "s3n://")
	}
	return location
}

// stringLike reports whether a declared partition key type takes quoted
// values in a partition spec.
func stringLike(declaredType string) bool {
	t := strings.ToLower(declaredType)
	return t == "string" || strings.HasPrefix(t, "varchar") || strings.HasPrefix(t, "char")
}

// PartitionSpec builds the partition predicate for a partition, pairing each
// declared partition key with the positional value from the partition. Values
// of string-like keys are quoted; everything is comma-joined with no trailing
// comma, e.g. year='2024',month=03.
func PartitionSpec(keys []catalog.FieldSchema, values []string) string {
	parts := make([]string, 0, len(keys))
	for i, key := range keys {
		if i >= len(values) {
			break
		}
		value := Escape(values[i])
		if stringLike(key.Type) {
			value = "'" + value + "'"
		}
		parts = append(parts, key.Name+"="+value)
	}
	return strings.Join(parts, ",")
}

// DropTable returns the idempotent drop statement for a table.
func DropTable(table catalog.Table) string {
	return fmt.Sprintf("drop table if exists %s", FQTN(table))
}

// AddPartition returns the idempotent add-partition statement for one
// partition of a table.
func AddPartition(table catalog.Table, partition catalog.Partition) string {
	spec := PartitionSpec(table.PartitionKeys, partition.Values)
	location := Escape(NormalizeLocation(partition.Location))
	return fmt.Sprintf("alter table %s add if not exists partition(%s) location '%s'",
		FQTN(table), spec, location)
}

// DropPartition returns the idempotent drop-partition statement for one
// partition of a table. The trailing semicolon is part of the statement shape
// the remote endpoint has always received from this agent.
func DropPartition(table catalog.Table, partition catalog.Partition) string {
	spec := PartitionSpec(table.PartitionKeys, partition.Values)
	return fmt.Sprintf("alter table %s drop if exists partition(%s);", FQTN(table), spec)
}
