package events

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline failure taxonomy. Stage code tags errors
// with one of these so callers can pick retry, degrade, or abort behavior
// without string matching.
var (
	// ErrTransient covers network and storage errors worth retrying with
	// bounded backoff.
	ErrTransient = errors.New("transient failure")
	// ErrDegradable covers codec candidate failures; the selector falls
	// through to the next candidate and ultimately to storing the original.
	ErrDegradable = errors.New("degradable failure")
	// ErrLocalFatal covers recording write failures that abort a single
	// event without touching other cameras.
	ErrLocalFatal = errors.New("local-fatal failure")
	// ErrConfiguration covers problems that should have been caught at
	// startup; surfacing one mid-stream indicates a wiring bug.
	ErrConfiguration = errors.New("configuration error")
	// ErrBestEffort covers notification failures that never affect event
	// outcome.
	ErrBestEffort = errors.New("best-effort failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
