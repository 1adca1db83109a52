package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

func TestScanIDAcceptsNumbersAndStrings(t *testing.T) {
	tests := []struct {
		in   string
		want events.ScanID
	}{
		{`{"scanId":17}`, "17"},
		{`{"scanId":"6f1c"}`, "6f1c"},
		{`{"scanId":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p events.ScanUpdatePayload
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p.ScanID)
		})
	}

	var p events.ScanUpdatePayload
	assert.Error(t, json.Unmarshal([]byte(`{"scanId":true}`), &p))
}

func TestScanIDMarshal(t *testing.T) {
	b, err := json.Marshal(events.ScanUpdatePayload{ScanID: "17", Status: events.ScanRunning})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scanId":17,"status":"Running"}`, string(b))

	b, err = json.Marshal(events.ScanUpdatePayload{ScanID: "abc", Status: events.ScanCreated})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scanId":"abc","status":"Created"}`, string(b))
}

func TestScanStatus(t *testing.T) {
	for _, s := range []events.ScanStatus{events.ScanCompleted, events.ScanStopped, events.ScanFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []events.ScanStatus{events.ScanCreated, events.ScanPending, events.ScanRunning} {
		assert.False(t, s.Terminal(), s)
	}
	assert.True(t, events.ScanStatus("COMPLETED").Valid())
	assert.False(t, events.ScanStatus("Exploded").Valid())

	var p events.ScanUpdatePayload
	require.NoError(t, json.Unmarshal([]byte(`{"status":"completed","progress":100}`), &p))
	assert.Equal(t, events.ScanCompleted, p.Status)
	require.NotNil(t, p.Progress)
	assert.Equal(t, 100, *p.Progress)
}
