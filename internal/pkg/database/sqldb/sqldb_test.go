package sqldb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func newHandler(t *testing.T) Handler {
	t.Helper()
	pub := msg.NewPublisher(uuid.New())
	h, err := New("./db_config_test.json", pub, nil)
	assert.NilError(t, err)
	return h
}

func TestGetConfig(t *testing.T) {
	h := newHandler(t)
	assert.Equal(t, h.config.Port, 3306)
	assert.Equal(t, h.config.Server, "localhost")
	assert.Equal(t, h.config.Table, "points")
}

func TestDSN(t *testing.T) {
	h := newHandler(t)
	assert.Assert(t, strings.HasPrefix(h.dsn(), "oad:secret@tcp(localhost:3306)/oad?"), h.dsn())
	assert.Assert(t, is.Contains(h.dsn(), "timeout=5s"))
}

func TestOpenIsLazy(t *testing.T) {
	h := newHandler(t)
	db, err := h.getDB()
	assert.NilError(t, err)
	defer db.Close()
}

func TestRows(t *testing.T) {
	rec := powertrain.PointRecord{
		Run:       "series_hybrid",
		Component: "splitter",
		Index:     4,
		Time:      1200,
		Phase:     mission.Cruise,
		Status:    "converged",
		Branch:    "primary_only",
		Variables: []component.Variable{
			{Name: "current_out", Unit: "A", Value: 180},
			{Name: "primary_share", Unit: "-", Value: 1},
		},
	}
	got := rows(rec)
	assert.Assert(t, is.Len(got, 2))
	assert.DeepEqual(t, got[0], []interface{}{
		"series_hybrid", "splitter", 4, 1200.0, "cruise", "converged", "primary_only", "current_out", "A", 180.0,
	})
	assert.Equal(t, got[1][7], "primary_share")
}

func TestStatements(t *testing.T) {
	assert.Assert(t, is.Contains(createTable("points"), "CREATE TABLE IF NOT EXISTS points"))
	assert.Equal(t, strings.Count(insertRow("points"), "?"), 10)
}

func TestWriteRecordWithoutServer(t *testing.T) {
	h := newHandler(t)
	h.config.Server = "127.0.0.1"
	h.config.Port = 1
	db, err := h.getDB()
	assert.NilError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec := powertrain.PointRecord{Run: "r", Component: "c", Variables: []component.Variable{{Name: "v", Value: 1}}}
	assert.Assert(t, writeRecord(ctx, db, insertRow(h.config.Table), rec) != nil)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHandler(t)
	h.Stop()
	h.Stop()

	done := make(chan struct{})
	go func() {
		h.Process()
		close(done)
	}()
	<-done
}
