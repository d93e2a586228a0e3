package persist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWALAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer w.Close()

	if err := w.Append("tenant-a", OpCreateNode, map[string]uint64{"id": 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append("tenant-a", OpCreateNode, map[string]uint64{"id": 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	records, err := ReadAll(filepath.Join(dir, walFileName))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Sequence != 1 || records[1].Sequence != 2 {
		t.Fatalf("unexpected sequence numbers: %+v", records)
	}
}

func TestWALReadAllTruncatesOnTornWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	if err := w.Append("tenant-a", OpCreateNode, map[string]uint64{"id": 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, walFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	// Write a header claiming more payload bytes than follow, simulating a
	// crash mid-write.
	if _, err := f.Write([]byte{0, 0, 0, 100, 0, 0, 0, 0, 'x'}); err != nil {
		t.Fatalf("write torn record: %v", err)
	}
	f.Close()

	records, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected torn trailing record to be dropped, got %d records", len(records))
	}
}

func TestWALSequenceResumesAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Append("tenant-a", OpCreateNode, map[string]int{"n": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("reopen OpenWAL: %v", err)
	}
	defer w2.Close()
	if w2.Sequence() != 3 {
		t.Fatalf("expected resumed sequence 3, got %d", w2.Sequence())
	}
	if err := w2.Append("tenant-a", OpCreateNode, map[string]int{"n": 4}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if w2.Sequence() != 4 {
		t.Fatalf("expected sequence 4 after append, got %d", w2.Sequence())
	}
}

func TestReadAfterFiltersBySequence(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Append("tenant-a", OpCreateNode, map[string]int{"n": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records, err := ReadAfter(filepath.Join(dir, walFileName), 2)
	if err != nil {
		t.Fatalf("ReadAfter: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records after sequence 2, got %d", len(records))
	}
	if records[0].Sequence != 3 {
		t.Fatalf("expected first filtered record to be sequence 3, got %d", records[0].Sequence)
	}
}
