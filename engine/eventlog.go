package engine

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// EventLogEntry records one session event with both time sources.
type EventLogEntry struct {
	WallMS uint64
	Frame  int64
	Type   string
	Label  string
}

// EventLog collects protocol state changes and emitted tags for offline
// alignment with the recorded signal.
type EventLog struct {
	start   time.Time
	entries []EventLogEntry
}

// NewEventLog starts a log whose wall_ms column counts from start.
func NewEventLog(start time.Time) *EventLog {
	return &EventLog{start: start}
}

// Log appends an event.
func (l *EventLog) Log(now time.Time, frame int64, etype, label string) {
	var ms uint64
	if now.After(l.start) {
		ms = uint64(now.Sub(l.start).Milliseconds())
	}
	l.entries = append(l.entries, EventLogEntry{
		WallMS: ms,
		Frame:  frame,
		Type:   etype,
		Label:  label,
	})
}

// Entries returns the recorded events.
func (l *EventLog) Entries() []EventLogEntry {
	return l.entries
}

// Save writes the log as CSV.
func (l *EventLog) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"wall_ms", "frame", "type", "label"})
	for _, e := range l.entries {
		w.Write([]string{
			strconv.FormatUint(e.WallMS, 10),
			strconv.FormatInt(e.Frame, 10),
			e.Type,
			e.Label,
		})
	}
	w.Flush()
	return w.Error()
}
