package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"suffixrank/internal/domain"
)

var csvHeader = []string{"tld", "abuse_score"}

// CSVSink writes ranked scores to a CSV file, replacing any previous file.
type CSVSink struct {
	Path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (s *CSVSink) WriteScores(ctx context.Context, scores []domain.AbuseScore) error {
	if s.Path == "" {
		return errors.New("csv sink: empty output path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv sink: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv sink: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeScores(tmp, scores); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csv sink: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csv sink: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csv sink: replace %s: %w", s.Path, err)
	}

	log.Info("Abuse scores saved", "path", s.Path, "tlds", len(scores))
	return nil
}

func writeScores(w io.Writer, scores []domain.AbuseScore) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("csv sink: write header: %w", err)
	}
	for _, s := range scores {
		if err := writer.Write([]string{s.Key, FormatScore(s.Score)}); err != nil {
			return fmt.Errorf("csv sink: write row %s: %w", s.Key, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv sink: flush: %w", err)
	}
	return nil
}

// FormatScore renders the shortest decimal form, always with a fractional part ("1.0", "0.25").
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ReadScoresCSV loads a file written by CSVSink.
func ReadScoresCSV(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read scores header: %w", err)
	}
	if header[0] != csvHeader[0] || header[1] != csvHeader[1] {
		return nil, fmt.Errorf("read scores: unexpected header %q", header)
	}

	scores := make(map[string]float64)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scores: %w", err)
		}
		score, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("read scores: bad score for %s: %w", row[0], err)
		}
		scores[row[0]] = score
	}

	return scores, nil
}
