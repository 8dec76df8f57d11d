package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"shareledger/internal/model"
)

// exportRecord is the wire form of an audit entry in an export: one JSON
// object per line.
type exportRecord struct {
	ID         string    `json:"id"`
	FileOwner  string    `json:"file_owner"`
	FileURL    string    `json:"file_url,omitempty"`
	GrantedTo  string    `json:"granted_to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ExportName returns the archive object name for an audit export taken at t.
func ExportName(t time.Time) string {
	return "access-log-" + t.UTC().Format("20060102T150405Z") + ".jsonl"
}

// EncodeAccessLog writes entries to w as JSON Lines, one audit entry per line.
func EncodeAccessLog(w io.Writer, entries []*model.AccessLogEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		rec := exportRecord{
			ID:         e.ID,
			FileOwner:  e.FileOwner,
			FileURL:    e.FileURL,
			GrantedTo:  e.GrantedTo,
			OccurredAt: e.OccurredAt,
		}
		// json.Encoder terminates each value with a newline, which is
		// exactly the JSON Lines framing.
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding audit entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// DecodeAccessLog reads a JSON Lines audit export from r.
func DecodeAccessLog(r io.Reader) ([]*model.AccessLogEntry, error) {
	var entries []*model.AccessLogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decoding export line %d: %w", line, err)
		}
		entries = append(entries, &model.AccessLogEntry{
			ID:         rec.ID,
			FileOwner:  rec.FileOwner,
			FileURL:    rec.FileURL,
			GrantedTo:  rec.GrantedTo,
			OccurredAt: rec.OccurredAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	return entries, nil
}
