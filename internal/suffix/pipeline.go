package suffix

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"suffixrank/internal/config"
	"suffixrank/internal/domain"
	"suffixrank/internal/feeds"
)

// Store keeps suffix records unique by suffix and by canonical form, ignoring case.
// Records that collide with an existing row are skipped without error.
type Store interface {
	InsertSuffixes(ctx context.Context, records []domain.SuffixRecord) (inserted int64, err error)
}

type Pipeline struct {
	cfg     config.SuffixSettings
	fetcher feeds.Fetcher
	store   Store
}

type Outcome struct {
	Lines     int
	Suffixes  int
	Fallbacks int
	Inserted  int64
	Ignored   int64
}

func NewPipeline(cfg config.SuffixSettings, fetcher feeds.Fetcher, store Store) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
	}
}

func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	if p.fetcher == nil {
		return nil, errors.New("suffix: no fetcher configured")
	}
	if p.store == nil {
		return nil, errors.New("suffix: no store configured")
	}

	log.Info("Fetching public suffix list", "source", p.cfg.SourceURL)
	text, err := p.fetcher.Fetch(ctx, p.cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("suffix: %w", err)
	}

	lines := feeds.SplitLines(text)
	records := Build(lines)

	outcome := &Outcome{
		Lines:    len(lines),
		Suffixes: len(records),
	}
	for _, r := range records {
		if r.Fallback {
			outcome.Fallbacks++
			log.Debug("Punycode conversion failed, keeping original", "suffix", r.Suffix)
		}
	}

	inserted, err := p.store.InsertSuffixes(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("suffix: store records: %w", err)
	}
	outcome.Inserted = inserted
	outcome.Ignored = int64(len(records)) - inserted

	log.Info("Public suffix list stored",
		"suffixes", outcome.Suffixes,
		"inserted", outcome.Inserted,
		"ignored", outcome.Ignored,
		"fallbacks", outcome.Fallbacks,
	)

	return outcome, nil
}
