package ddl

import (
	"fmt"
	"regexp"
)

// DropTableNamed returns the non-idempotent drop used to clear a table that
// the remote endpoint reported as already existing. Unlike DropTable it has no
// "if exists" guard: at this point the remote has just told us the table is
// there.
func DropTableNamed(fqtn string) string {
	return fmt.Sprintf("drop table %s", fqtn)
}

// CreateDatabase returns the statement that creates a database the remote
// endpoint reported as missing.
func CreateDatabase(database string) string {
	return fmt.Sprintf("Create database if not exists %s", database)
}

var createTablePattern = regexp.MustCompile(
	`(?i)^\s*create\s+(?:external\s+)?table\s+(?:if\s+not\s+exists\s+)?` + "`?([\\w.]+)`?")

// TableFromCreate extracts the qualified table name from a create statement.
// Returns false when the statement is not a create.
func TableFromCreate(statement string) (string, bool) {
	m := createTablePattern.FindStringSubmatch(statement)
	if m == nil {
		return "", false
	}
	return m[1], true
}
