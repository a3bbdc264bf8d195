// Package agent hosts the replication pipeline: a catalog listener that
// filters schema-change events and translates them into remote statements,
// and a single worker that drains the statement queue against the remote
// endpoint.
package agent

import (
	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/catalog"
	"github.com/hiveline/hiveline/cfg"
	"github.com/hiveline/hiveline/ddl"
	"github.com/hiveline/hiveline/queue"
	"github.com/hiveline/hiveline/telemetry"
)

// SyncListener translates catalog events into remote statements and enqueues
// them. Filtering happens here, on the event producer's thread; anything
// enqueued has already passed every gate and the worker replicates it as-is.
type SyncListener struct {
	sync      *cfg.SyncConfiguration
	whitelist map[string]struct{}
	gen       ddl.Generator
	queue     *queue.Queue
}

// NewSyncListener builds a listener over the given queue. The whitelist is
// captured once at construction; an empty whitelist admits nothing.
func NewSyncListener(sync *cfg.SyncConfiguration, gen ddl.Generator, q *queue.Queue) *SyncListener {
	return &SyncListener{
		sync:      sync,
		whitelist: sync.Whitelist(),
		gen:       gen,
		queue:     q,
	}
}

// admits applies the database whitelist, table kind and storage location
// gates, in that order. Drop suppression and partition status are per-event
// concerns handled by the callers.
func (l *SyncListener) admits(table *catalog.Table, kind string) bool {
	if _, ok := l.whitelist[table.Database]; !ok {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Str("event", kind).
			Msg("Database not whitelisted, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return false
	}
	if !table.Replicable() {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Str("kind", table.Kind).
			Str("event", kind).
			Msg("Table kind not replicable, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return false
	}
	if !ddl.IsObjectStoreLocation(table.Location) {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Str("location", table.Location).
			Str("event", kind).
			Msg("Table not stored on the object store, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return false
	}
	return true
}

func (l *SyncListener) enqueue(statement, kind string) {
	l.queue.Push(queue.Job{Statement: statement})
	telemetry.EventsTotal.With(kind, "queued").Inc()
	log.Debug().Str("statement", statement).Msg("Queued statement for replication")
}

// OnCreateTable implements catalog.Listener.
func (l *SyncListener) OnCreateTable(table catalog.Table) {
	const kind = "create_table"
	if !l.admits(&table, kind) {
		return
	}

	statement, err := l.gen.CreateTable(table)
	if err != nil {
		log.Warn().
			Err(err).
			Str("database", table.Database).
			Str("table", table.Name).
			Msg("Cannot build create statement, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	l.enqueue(statement, kind)
}

// OnDropTable implements catalog.Listener.
func (l *SyncListener) OnDropTable(table catalog.Table) {
	const kind = "drop_table"
	if l.sync.SuppressAllDropEvents {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Msg("Drop events suppressed, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	if !l.admits(&table, kind) {
		return
	}
	l.enqueue(ddl.DropTable(table), kind)
}

// OnAddPartition implements catalog.Listener. Partitions whose location is
// off the object store are skipped individually; the rest of the event still
// replicates.
func (l *SyncListener) OnAddPartition(table catalog.Table, partitions []catalog.Partition, status bool) {
	const kind = "add_partition"
	if !status {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Msg("Source add-partition operation failed, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	if !l.admits(&table, kind) {
		return
	}

	queued := false
	for _, partition := range partitions {
		if !ddl.IsObjectStoreLocation(partition.Location) {
			log.Debug().
				Str("database", table.Database).
				Str("table", table.Name).
				Str("location", partition.Location).
				Msg("Partition not stored on the object store, skipping partition")
			continue
		}
		l.enqueue(ddl.AddPartition(table, partition), kind)
		queued = true
	}
	if !queued {
		telemetry.EventsTotal.With(kind, "filtered").Inc()
	}
}

// OnDropPartition implements catalog.Listener.
func (l *SyncListener) OnDropPartition(table catalog.Table, partition catalog.Partition, status bool) {
	const kind = "drop_partition"
	if !status {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Msg("Source drop-partition operation failed, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	if l.sync.SuppressAllDropEvents {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Msg("Drop events suppressed, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	if !l.admits(&table, kind) {
		return
	}
	if !ddl.IsObjectStoreLocation(partition.Location) {
		log.Debug().
			Str("database", table.Database).
			Str("table", table.Name).
			Str("location", partition.Location).
			Msg("Partition not stored on the object store, skipping event")
		telemetry.EventsTotal.With(kind, "filtered").Inc()
		return
	}
	l.enqueue(ddl.DropPartition(table, partition), kind)
}
