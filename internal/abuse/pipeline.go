package abuse

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"suffixrank/internal/config"
	"suffixrank/internal/domain"
	"suffixrank/internal/feeds"
)

// Sink persists a ranked score set, replacing whatever it held before.
type Sink interface {
	WriteScores(ctx context.Context, scores []domain.AbuseScore) error
}

type Pipeline struct {
	cfg     config.AbuseSettings
	fetcher feeds.Fetcher
	sinks   []Sink
}

type Outcome struct {
	Lines      int
	Parsed     int
	Skipped    int
	Duplicates int
	MaxCount   uint64
	Scores     []domain.AbuseScore
}

func NewPipeline(cfg config.AbuseSettings, fetcher feeds.Fetcher, sinks ...Sink) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		sinks:   sinks,
	}
}

// Run downloads the ranking feed, normalizes it and hands the ranked scores to every sink.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	if p.fetcher == nil {
		return nil, errors.New("abuse: no fetcher configured")
	}

	log.Info("Fetching abuse rankings", "source", p.cfg.SourceURL)
	text, err := p.fetcher.Fetch(ctx, p.cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("abuse: %w", err)
	}

	lines := feeds.SplitLines(text)
	parsed := Parse(lines)
	for reason, n := range parsed.Skipped {
		log.Debug("Skipped ranking lines", "reason", reason, "count", n)
	}

	scores := Rank(Normalize(parsed.Records))

	for _, sink := range p.sinks {
		if err := sink.WriteScores(ctx, scores); err != nil {
			return nil, fmt.Errorf("abuse: write scores: %w", err)
		}
	}

	outcome := &Outcome{
		Lines:      len(lines),
		Parsed:     len(parsed.Records),
		Skipped:    parsed.SkippedTotal(),
		Duplicates: parsed.Duplicates,
		MaxCount:   MaxCount(parsed.Records),
		Scores:     scores,
	}

	log.Info("Abuse rankings normalized",
		"lines", outcome.Lines,
		"tlds", outcome.Parsed,
		"skipped", outcome.Skipped,
		"duplicates", outcome.Duplicates,
		"sinks", len(p.sinks),
	)

	return outcome, nil
}
