package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

func scanEvent(t *testing.T, data string) events.Event {
	t.Helper()
	e, err := events.NewEvent(events.ScanUpdate, []byte(data), "3", time.Date(2025, 1, 2, 10, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func TestEventWriterJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventWriter(&buf, FormatJSON)
	require.NoError(t, w.Write(scanEvent(t, `{"scanId":12,"status":"running","progress":40}`)))
	require.NoError(t, w.Write(scanEvent(t, `{"scanId":12,"status":"completed","progress":100}`)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "SCAN_UPDATE", got["type"])
	assert.Equal(t, "3", got["id"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "running", data["status"])
}

func TestEventWriterYAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventWriter(&buf, FormatYAML)
	require.NoError(t, w.Write(scanEvent(t, `{"status":"pending"}`)))
	require.NoError(t, w.Write(scanEvent(t, `{"status":"running"}`)))

	assert.Equal(t, 2, strings.Count(buf.String(), "---\n"))
	assert.Contains(t, buf.String(), "type: SCAN_UPDATE")
	assert.Contains(t, buf.String(), "status: running")
}

func TestEventWriterTableLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEventWriter(&buf, FormatTable).Write(scanEvent(t, `{"scanId":"a1","status":"Running","progress":60,"target":"example.com"}`)))
	assert.Equal(t, "10:04:05  SCAN_UPDATE   scan a1 Running 60% example.com\n", buf.String())

	buf.Reset()
	require.NoError(t, NewEventWriter(&buf, FormatWide).Write(scanEvent(t, `{"status":"failed"}`)))
	assert.Contains(t, buf.String(), `{"status":"failed"}`)
}

func TestSummary(t *testing.T) {
	connected, err := events.NewEvent(events.Connected, []byte(`{"message":"SSE connection established"}`), "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SSE connection established", Summary(connected))

	other, err := events.NewEvent("REPORT_READY", []byte(` {"report":1} `), "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, `{"report":1}`, Summary(other))

	assert.Equal(t, "scan Failed (target unreachable)",
		ScanSummary(events.ScanUpdatePayload{Status: events.ScanFailed, Message: "target unreachable"}))
}

func TestScansToTableData(t *testing.T) {
	p := 85
	data := ScansToTableData(map[events.ScanID]events.ScanUpdatePayload{
		"2": {ScanID: "2", Status: events.ScanCompleted},
		"1": {ScanID: "1", Status: events.ScanRunning, Progress: &p, Target: "scanme.nmap.org"},
	})

	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"1", "scanme.nmap.org", "Running", "85%"}, data.Rows[0])
	assert.Equal(t, []string{"2", "-", "Completed", "-"}, data.Rows[1])
	assert.Equal(t, AlignRight, data.ColumnAlignment[3])
}
