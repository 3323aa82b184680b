package errors

import (
	"fmt"
	"time"
)

// Record is one entry in the director's error collection. Records are
// values: once built they are never modified, only copied.
type Record struct {
	Severity Severity
	Message  string
	Cause    error
	// Mod names the descriptor the record refers to, if any.
	Mod  string
	Time time.Time
}

// NewRecord creates a record stamped with the current time.
func NewRecord(severity Severity, message string, cause error) Record {
	return Record{
		Severity: severity,
		Message:  message,
		Cause:    cause,
		Time:     time.Now(),
	}
}

// RecordFromError builds a record whose severity comes from the error's
// classification. Unclassified errors are fatal.
func RecordFromError(message string, err error) Record {
	return NewRecord(GetSeverity(err), message, err)
}

// WithMod returns a copy of the record attributed to a mod.
func (r Record) WithMod(name string) Record {
	r.Mod = name
	return r
}

// IsFatal reports whether the record fails an activation.
func (r Record) IsFatal() bool {
	return r.Severity.IsFatal()
}

// String formats the record for display.
func (r Record) String() string {
	msg := r.Message
	if r.Mod != "" {
		msg = fmt.Sprintf("[%s] %s", r.Mod, msg)
	}
	if r.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, r.Cause)
	}
	return fmt.Sprintf("%s: %s", r.Severity, msg)
}
