package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hiveline/hiveline/catalog"
	"github.com/hiveline/hiveline/queue"
)

// recordingListener captures forwarded events for assertions.
type recordingListener struct {
	mu      sync.Mutex
	creates []catalog.Table
	drops   []catalog.Table
	adds    []addPartitionEvent
	dropped []dropPartitionEvent
}

func (l *recordingListener) OnCreateTable(table catalog.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creates = append(l.creates, table)
}

func (l *recordingListener) OnDropTable(table catalog.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drops = append(l.drops, table)
}

func (l *recordingListener) OnAddPartition(table catalog.Table, partitions []catalog.Partition, status bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adds = append(l.adds, addPartitionEvent{Table: table, Partitions: partitions, Status: status})
}

func (l *recordingListener) OnDropPartition(table catalog.Table, partition catalog.Partition, status bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropped = append(l.dropped, dropPartitionEvent{Table: table, Partition: partition, Status: status})
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingListener) {
	t.Helper()
	listener := &recordingListener{}
	handlers := NewEventHandlers(listener, queue.New())
	server := httptest.NewServer(handlers.Router())
	t.Cleanup(server.Close)
	return server, listener
}

func post(t *testing.T, server *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateTableEvent(t *testing.T) {
	server, listener := newTestServer(t)

	resp := post(t, server, "/events/create-table", `{
		"table": {
			"database": "weblogs",
			"name": "requests",
			"kind": "EXTERNAL_TABLE",
			"location": "s3://bucket/weblogs/requests",
			"columns": [{"name": "ip", "type": "string"}]
		}
	}`)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(listener.creates) != 1 {
		t.Fatalf("expected 1 create event, got %d", len(listener.creates))
	}
	if listener.creates[0].Database != "weblogs" || listener.creates[0].Name != "requests" {
		t.Errorf("wrong table forwarded: %+v", listener.creates[0])
	}
}

func TestAddPartitionEvent(t *testing.T) {
	server, listener := newTestServer(t)

	resp := post(t, server, "/events/add-partition", `{
		"table": {"database": "weblogs", "name": "requests", "kind": "EXTERNAL_TABLE",
			"location": "s3://bucket/weblogs/requests",
			"partition_keys": [{"name": "year", "type": "string"}]},
		"partitions": [{"values": ["2024"], "location": "s3://bucket/weblogs/requests/2024"}],
		"status": true
	}`)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(listener.adds) != 1 {
		t.Fatalf("expected 1 add-partition event, got %d", len(listener.adds))
	}
	if !listener.adds[0].Status || len(listener.adds[0].Partitions) != 1 {
		t.Errorf("wrong event forwarded: %+v", listener.adds[0])
	}
}

func TestDropPartitionEvent(t *testing.T) {
	server, listener := newTestServer(t)

	resp := post(t, server, "/events/drop-partition", `{
		"table": {"database": "weblogs", "name": "requests", "kind": "EXTERNAL_TABLE",
			"location": "s3://bucket/weblogs/requests"},
		"partition": {"values": ["2024"], "location": "s3://bucket/weblogs/requests/2024"},
		"status": false
	}`)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(listener.dropped) != 1 || listener.dropped[0].Status {
		t.Fatalf("wrong event forwarded: %+v", listener.dropped)
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	server, listener := newTestServer(t)

	cases := []struct {
		path string
		body string
	}{
		{"/events/create-table", `{not json`},
		{"/events/create-table", `{"table": {"name": "requests"}}`},
		{"/events/drop-table", `{"table": {"database": "weblogs"}}`},
		{"/events/add-partition", `{"table": {"database": "d", "name": "t"}, "partitions": [], "status": true}`},
		{"/events/create-table", `{"table": {"database": "d", "name": "t"}, "bogus": 1}`},
	}

	for _, tc := range cases {
		resp := post(t, server, tc.path, tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %s %s: expected 400, got %d", tc.path, tc.body, resp.StatusCode)
		}
	}

	if len(listener.creates)+len(listener.drops)+len(listener.adds)+len(listener.dropped) != 0 {
		t.Error("malformed payloads must not reach the listener")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
