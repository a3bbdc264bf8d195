package agent

import (
	"strings"
	"testing"

	"github.com/hiveline/hiveline/catalog"
	"github.com/hiveline/hiveline/cfg"
	"github.com/hiveline/hiveline/ddl"
	"github.com/hiveline/hiveline/queue"
)

func testTable() catalog.Table {
	return catalog.Table{
		Database: "weblogs",
		Name:     "requests",
		Kind:     catalog.KindExternal,
		Location: "s3://bucket/weblogs/requests",
		Columns: []catalog.FieldSchema{
			{Name: "ip", Type: "string"},
			{Name: "bytes", Type: "bigint"},
		},
		PartitionKeys: []catalog.FieldSchema{
			{Name: "year", Type: "string"},
			{Name: "month", Type: "int"},
		},
	}
}

func newTestListener(sync cfg.SyncConfiguration) (*SyncListener, *queue.Queue) {
	q := queue.New()
	return NewSyncListener(&sync, ddl.BasicGenerator{}, q), q
}

func drain(q *queue.Queue) []string {
	var statements []string
	for {
		job, ok := q.TryPop()
		if !ok {
			return statements
		}
		statements = append(statements, job.Statement)
	}
}

func TestListenerCreateTableQueued(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnCreateTable(testTable())

	statements := drain(q)
	if len(statements) != 1 {
		t.Fatalf("expected 1 queued statement, got %d", len(statements))
	}
	if !strings.HasPrefix(statements[0], "CREATE EXTERNAL TABLE IF NOT EXISTS weblogs.requests") {
		t.Errorf("unexpected statement: %s", statements[0])
	}
}

func TestListenerEmptyWhitelistSyncsNothing(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{})

	l.OnCreateTable(testTable())
	l.OnDropTable(testTable())

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}

func TestListenerWhitelistIsExactMatch(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs_archive, other"})

	l.OnCreateTable(testTable()) // database "weblogs" is only a prefix

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}

func TestListenerViewsAreFiltered(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	table := testTable()
	table.Kind = "VIRTUAL_VIEW"
	l.OnCreateTable(table)

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}

func TestListenerNonObjectStoreTableFiltered(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	table := testTable()
	table.Location = "hdfs://namenode/weblogs/requests"
	l.OnCreateTable(table)

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}

func TestListenerDropTable(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnDropTable(testTable())

	statements := drain(q)
	if len(statements) != 1 {
		t.Fatalf("expected 1 queued statement, got %d", len(statements))
	}
	if statements[0] != "drop table if exists weblogs.requests" {
		t.Errorf("unexpected statement: %s", statements[0])
	}
}

func TestListenerSuppressAllDropEvents(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{
		DBWhitelist:           "weblogs",
		SuppressAllDropEvents: true,
	})

	l.OnDropTable(testTable())
	l.OnDropPartition(testTable(), catalog.Partition{
		Values:   []string{"2024", "3"},
		Location: "s3://bucket/weblogs/requests/2024/3",
	}, true)

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}

	// Non-drop events still replicate
	l.OnCreateTable(testTable())
	if statements := drain(q); len(statements) != 1 {
		t.Fatalf("expected create to pass through, got %v", statements)
	}
}

func TestListenerAddPartition(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnAddPartition(testTable(), []catalog.Partition{
		{Values: []string{"2024", "03"}, Location: "s3a://bucket/weblogs/requests/2024/03"},
		{Values: []string{"2024", "04"}, Location: "s3://bucket/weblogs/requests/2024/04"},
	}, true)

	statements := drain(q)
	if len(statements) != 2 {
		t.Fatalf("expected 2 queued statements, got %d", len(statements))
	}
	want := "alter table weblogs.requests add if not exists partition(year='2024',month=03) location 's3://bucket/weblogs/requests/2024/03'"
	if statements[0] != want {
		t.Errorf("unexpected statement:\n got %s\nwant %s", statements[0], want)
	}
}

func TestListenerAddPartitionFailedStatus(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnAddPartition(testTable(), []catalog.Partition{
		{Values: []string{"2024", "03"}, Location: "s3://bucket/weblogs/requests/2024/03"},
	}, false)

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}

func TestListenerAddPartitionSkipsNonObjectStorePartitions(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnAddPartition(testTable(), []catalog.Partition{
		{Values: []string{"2024", "03"}, Location: "hdfs://namenode/weblogs/requests/2024/03"},
		{Values: []string{"2024", "04"}, Location: "s3://bucket/weblogs/requests/2024/04"},
	}, true)

	statements := drain(q)
	if len(statements) != 1 {
		t.Fatalf("expected 1 queued statement, got %d", len(statements))
	}
	if !strings.Contains(statements[0], "2024/04") {
		t.Errorf("wrong partition queued: %s", statements[0])
	}
}

func TestListenerDropPartition(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	l.OnDropPartition(testTable(), catalog.Partition{
		Values:   []string{"2024", "03"},
		Location: "s3://bucket/weblogs/requests/2024/03",
	}, true)

	statements := drain(q)
	if len(statements) != 1 {
		t.Fatalf("expected 1 queued statement, got %d", len(statements))
	}
	want := "alter table weblogs.requests drop if exists partition(year='2024',month=03);"
	if statements[0] != want {
		t.Errorf("unexpected statement:\n got %s\nwant %s", statements[0], want)
	}
}

func TestListenerCreateWithoutSchemaFiltered(t *testing.T) {
	l, q := newTestListener(cfg.SyncConfiguration{DBWhitelist: "weblogs"})

	table := testTable()
	table.Columns = nil
	l.OnCreateTable(table)

	if statements := drain(q); len(statements) != 0 {
		t.Fatalf("expected empty queue, got %v", statements)
	}
}
