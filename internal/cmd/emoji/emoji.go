// Package emoji provides symbol constants for CLI output.
package emoji

import "github.com/reddy-bhavesh/sarral-scan/pkg/events"

// Symbols used across command output.
const (
	// Success marks a completed operation or a completed scan.
	Success = "✓"

	// Error marks a failed operation or a failed scan.
	Error = "✗"

	// Stop marks shutdowns and stopped scans.
	Stop = "■"

	// Warning marks non-fatal problems.
	Warning = "!"

	// Info marks informational messages.
	Info = "i"

	// Live marks an open stream or a running scan.
	Live = "●"

	// Waiting marks a pending scan or a stream being dialed.
	Waiting = "○"

	// Unknown marks an unrecognized status.
	Unknown = "?"
)

// ForStatus returns the symbol for a scan status.
func ForStatus(s events.ScanStatus) string {
	switch s {
	case events.ScanCompleted:
		return Success
	case events.ScanFailed:
		return Error
	case events.ScanStopped:
		return Stop
	case events.ScanRunning:
		return Live
	case events.ScanCreated, events.ScanPending:
		return Waiting
	default:
		return Unknown
	}
}
