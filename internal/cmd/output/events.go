package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// EventWriter prints stream events as they arrive. JSON output is one
// object per line and YAML output is one document per event.
type EventWriter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// NewEventWriter creates an EventWriter. Unknown formats print as table lines.
func NewEventWriter(w io.Writer, format Format) *EventWriter {
	return &EventWriter{w: w, format: format}
}

// eventView is the printable shape of an event.
type eventView struct {
	Type       string `json:"type" yaml:"type"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	ReceivedAt string `json:"received_at" yaml:"received_at"`
	Data       any    `json:"data" yaml:"data"`
}

func viewOf(e events.Event) eventView {
	v := eventView{
		Type:       string(e.Type),
		ID:         e.ID,
		ReceivedAt: e.ReceivedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &v.Data); err != nil {
			v.Data = string(e.Data)
		}
	}
	return v
}

// Write prints one event.
func (ew *EventWriter) Write(e events.Event) error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	switch ew.format {
	case FormatJSON:
		return json.NewEncoder(ew.w).Encode(viewOf(e))
	case FormatYAML:
		b, err := yaml.MarshalWithOptions(viewOf(e), yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(ew.w, "---\n%s", b)
		return err
	default:
		line := fmt.Sprintf("%s  %-12s  %s", e.ReceivedAt.Format("15:04:05"), e.Type, Summary(e))
		if ew.format == FormatWide && len(e.Data) > 0 {
			line += "  " + string(e.Data)
		}
		_, err := fmt.Fprintln(ew.w, line)
		return err
	}
}

// Summary renders a one-line human description of an event.
func Summary(e events.Event) string {
	switch e.Type {
	case events.Connected:
		var p events.ConnectedPayload
		if err := e.Decode(&p); err == nil && p.Message != "" {
			return p.Message
		}
	case events.ScanUpdate:
		var p events.ScanUpdatePayload
		if err := e.Decode(&p); err == nil {
			return ScanSummary(p)
		}
	}
	return strings.TrimSpace(string(e.Data))
}

// ScanSummary renders a scan update as "scan <id> <status> [<n>%] [target] [message]".
func ScanSummary(p events.ScanUpdatePayload) string {
	parts := []string{"scan"}
	if p.ScanID != "" {
		parts = append(parts, string(p.ScanID))
	}
	parts = append(parts, string(p.Status))
	if p.Progress != nil {
		parts = append(parts, strconv.Itoa(*p.Progress)+"%")
	}
	if p.Target != "" {
		parts = append(parts, p.Target)
	}
	if p.Message != "" {
		parts = append(parts, "("+p.Message+")")
	}
	return strings.Join(parts, " ")
}

// ScansToTableData converts the latest state of each scan to a table,
// ordered by scan id.
func ScansToTableData(scans map[events.ScanID]events.ScanUpdatePayload) Data {
	ids := make([]string, 0, len(scans))
	for id := range scans {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		p := scans[events.ScanID(id)]
		progress := "-"
		if p.Progress != nil {
			progress = strconv.Itoa(*p.Progress) + "%"
		}
		target := p.Target
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{id, target, string(p.Status), progress})
	}

	return Data{
		Headers:         []string{"Scan", "Target", "Status", "Progress"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight},
	}
}
