package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"myproject", "myproject"},
		{"My Project", "My_Project"},
		{"a//b!!c", "a_b_c"},
		{"v1.2-rc_3", "v1.2-rc_3"},
		{"   ", "project"},
		{"///", "project"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProjectSlugStable(t *testing.T) {
	a := projectSlug("/home/dev/proj")
	b := projectSlug("/home/dev/proj")
	c := projectSlug("/home/other/proj")

	if a != b {
		t.Errorf("same path should slug identically: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different paths with the same base must not collide: %q", a)
	}
	if !strings.HasPrefix(a, "proj-") {
		t.Errorf("slug %q should start with the project base name", a)
	}
}

func TestAuditLoggerRecord(t *testing.T) {
	base := t.TempDir()
	root := t.TempDir()

	al, err := NewAuditLogger(base, root)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	defer al.Close()

	if err := al.Record(AuditEntry{Operation: "add", Tag: "master", Target: "1", Detail: "write tests"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := al.Record(AuditEntry{Operation: "set-status", Tag: "master", Target: "1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	f, err := os.Open(al.Path())
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Operation != "add" || entries[0].Detail != "write tests" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Operation != "set-status" {
		t.Errorf("second entry = %+v", entries[1])
	}
	if entries[0].Time.IsZero() {
		t.Error("Record should stamp entries missing a time")
	}
}

func TestAuditLoggerEmptyBaseDir(t *testing.T) {
	if _, err := NewAuditLogger("", "/some/root"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}

func TestAuditLoggerNilSafe(t *testing.T) {
	var al *AuditLogger
	if err := al.Record(AuditEntry{Operation: "noop"}); err != nil {
		t.Errorf("nil logger Record: %v", err)
	}
	if err := al.Close(); err != nil {
		t.Errorf("nil logger Close: %v", err)
	}
	if al.Path() != "" {
		t.Error("nil logger Path should be empty")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"bogus", log.InfoLevel},
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != log.JSONFormatter {
		t.Error("json should map to the JSON formatter")
	}
	if ParseFormat("logfmt") != log.LogfmtFormatter {
		t.Error("logfmt should map to the logfmt formatter")
	}
	if ParseFormat("anything-else") != log.TextFormatter {
		t.Error("unknown formats should fall back to text")
	}
}
