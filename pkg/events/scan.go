package events

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// ScanStatus is the lifecycle state of a scan as reported by SCAN_UPDATE.
type ScanStatus string

// Scan statuses emitted by the backend.
const (
	ScanCreated   ScanStatus = "Created"
	ScanPending   ScanStatus = "Pending"
	ScanRunning   ScanStatus = "Running"
	ScanCompleted ScanStatus = "Completed"
	ScanStopped   ScanStatus = "Stopped"
	ScanFailed    ScanStatus = "Failed"
)

// Terminal reports whether no further updates follow this status.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanCompleted, ScanStopped, ScanFailed:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses, ignoring case.
func (s ScanStatus) Valid() bool {
	switch ScanStatus(normalizeStatus(string(s))) {
	case ScanCreated, ScanPending, ScanRunning, ScanCompleted, ScanStopped, ScanFailed:
		return true
	}
	return false
}

// UnmarshalJSON accepts statuses in any letter case.
func (s *ScanStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ScanStatus(normalizeStatus(raw))
	return nil
}

func normalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ScanID identifies a scan. The backend sends integer ids; other producers
// send strings. Both decode to the same textual form.
type ScanID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ScanID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ScanID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.NewParseError("json", "scanId", "expected number or string", err)
	}
	*id = ScanID(n.String())
	return nil
}

// MarshalJSON writes integer-looking ids as numbers.
func (id ScanID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// ScanUpdatePayload is the payload of a SCAN_UPDATE event.
type ScanUpdatePayload struct {
	ScanID   ScanID     `json:"scanId,omitempty"`
	Status   ScanStatus `json:"status"`
	Progress *int       `json:"progress,omitempty"`
	Target   string     `json:"target,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// ConnectedPayload is the payload of a CONNECTED event.
type ConnectedPayload struct {
	Message string `json:"message"`
}
