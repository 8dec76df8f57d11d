package ledger_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"shareledger/internal/ledger"
	"shareledger/internal/model"
)

func TestExportName(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if got := ledger.ExportName(at); got != "access-log-20240115T103000Z.jsonl" {
		t.Errorf("ExportName() = %q", got)
	}
}

func TestAccessLogExportFormat(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	entries := []*model.AccessLogEntry{
		{ID: "id-1", FileOwner: alice, GrantedTo: bob, OccurredAt: at},
		{ID: "id-2", FileOwner: carol, FileURL: "ipfs://c1", GrantedTo: bob, OccurredAt: at.Add(time.Minute)},
	}

	var buf bytes.Buffer
	if err := ledger.EncodeAccessLog(&buf, entries); err != nil {
		t.Fatalf("EncodeAccessLog() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("export has %d lines, want 2:\n%s", len(lines), buf.String())
	}
	// Whole-set accesses carry no URL and the field is omitted entirely.
	if strings.Contains(lines[0], "file_url") {
		t.Errorf("line 1 includes file_url for a whole-set access: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"file_url":"ipfs://c1"`) {
		t.Errorf("line 2 missing file_url: %s", lines[1])
	}

	decoded, err := ledger.DecodeAccessLog(&buf)
	if err != nil {
		t.Fatalf("DecodeAccessLog() error = %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(decoded))
	}
	for i := range entries {
		if *decoded[i] != *entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, decoded[i], entries[i])
		}
	}
}
