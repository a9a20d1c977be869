package runlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendOrder(t *testing.T) {
	l := New(nil)
	l.Append(KindStep, "prepare", "Step: prepare")
	l.Append(KindCommand, "prepare", "apt-get update")
	l.Append(KindSuccess, "prepare", "done")

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i {
			t.Errorf("entry %d has Seq %d", i, e.Seq)
		}
	}
	if entries[1].Kind != KindCommand || entries[1].Text != "apt-get update" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestEntriesIsCopy(t *testing.T) {
	l := New(nil)
	l.Append(KindInfo, "", "first")
	entries := l.Entries()
	entries[0].Text = "mutated"
	if l.Entries()[0].Text != "first" {
		t.Error("log mutated through Entries() result")
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	l := New(sink)
	l.Append(KindCommand, "install", "echo hi")
	l.Append(KindOutput, "install", "hi")
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open sink file: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines []Entry
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 {
		t.Fatalf("sink lines = %d, want 2", len(lines))
	}
	if lines[0].Kind != KindCommand || lines[1].Kind != KindOutput {
		t.Errorf("sink entries out of order: %+v", lines)
	}
}
