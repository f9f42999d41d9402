package export

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"suffixrank/internal/domain"
)

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surbl_abuse.csv")
	scores := []domain.AbuseScore{
		{Key: "top", Score: 1},
		{Key: "xyz", Score: 0.5},
		{Key: "zero", Score: 0},
	}

	if err := NewCSVSink(path).WriteScores(context.Background(), scores); err != nil {
		t.Fatalf("WriteScores returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "tld,abuse_score\r\ntop,1.0\r\nxyz,0.5\r\nzero,0.0\r\n"
	if string(data) != want {
		t.Fatalf("output = %q, want %q", data, want)
	}
}

func TestCSVSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scores.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	if err := sink.WriteScores(ctx, []domain.AbuseScore{{Key: "a", Score: 1}, {Key: "b", Score: 0.1}}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := sink.WriteScores(ctx, []domain.AbuseScore{{Key: "c", Score: 1}}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := ReadScoresCSV(path)
	if err != nil {
		t.Fatalf("ReadScoresCSV returned error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]float64{"c": 1}) {
		t.Fatalf("scores after overwrite = %v, want only c", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the output file, found %d entries", len(entries))
	}
}

func TestCSVSinkEmptyScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := NewCSVSink(path).WriteScores(context.Background(), nil); err != nil {
		t.Fatalf("WriteScores returned error: %v", err)
	}

	got, err := ReadScoresCSV(path)
	if err != nil {
		t.Fatalf("ReadScoresCSV returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("scores = %v, want none", got)
	}
}

func TestCSVSinkEmptyPath(t *testing.T) {
	if err := NewCSVSink("").WriteScores(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReadScoresCSVRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	if err := os.WriteFile(path, []byte("name,value\nx,1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadScoresCSV(path); err == nil {
		t.Fatal("expected header error")
	}
}

func TestFormatScore(t *testing.T) {
	cases := map[float64]string{
		1:      "1.0",
		0:      "0.0",
		0.5:    "0.5",
		0.3333: "0.3333",
		0.0001: "0.0001",
	}
	for in, want := range cases {
		if got := FormatScore(in); got != want {
			t.Errorf("FormatScore(%v) = %q, want %q", in, got, want)
		}
	}
}
