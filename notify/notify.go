// Package notify formats and dispatches human-readable outcome summaries.
// Every job that leaves the processor's retry loop produces exactly one
// notification; a startup summary of the active configuration is sent once.
package notify

import (
	"strings"

	"github.com/hiveline/hiveline/cfg"
)

// Notifier dispatches one formatted message. Send failures are the caller's
// to log; they never affect job outcomes.
type Notifier interface {
	Send(message string) error
}

// Noop is used when no notification target is configured.
type Noop struct{}

func (Noop) Send(string) error { return nil }

// FormatOutcome renders the per-job message. For corrective sequences the
// statements list carries every statement attempted, in order.
func FormatOutcome(errMsg string, success bool, statements ...string) string {
	var b strings.Builder

	if success {
		b.WriteString("*Sync result* : :white_check_mark:")
	} else {
		b.WriteString("*Sync result* : :x:\n*Error* : ")
		b.WriteString(errMsg)
	}
	b.WriteString("\n*Query* :\n```\n")
	for _, stmt := range statements {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	b.WriteString("```")

	return b.String()
}

// FormatStartup renders the one-time summary of the active configuration.
func FormatStartup(c *cfg.Configuration) string {
	var b strings.Builder

	b.WriteString("*Starting catalog sync agent*\nProperties :\n```\n")
	writeProp(&b, "endpoint.url", c.Endpoint.URL)
	writeProp(&b, "endpoint.driver", c.Endpoint.Driver)
	writeProp(&b, "endpoint.staging_dir", c.Endpoint.StagingDir)
	writeProp(&b, "sync.drop_table_if_exists", boolString(c.Sync.DropTableIfExists))
	writeProp(&b, "sync.create_missing_db", boolString(c.Sync.CreateMissingDB))
	writeProp(&b, "sync.suppress_all_drop_events", boolString(c.Sync.SuppressAllDropEvents))
	writeProp(&b, "sync.db_whitelist", c.Sync.DBWhitelist)
	b.WriteString("```")

	return b.String()
}

func writeProp(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(" : ")
	b.WriteString(value)
	b.WriteString("\n")
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
