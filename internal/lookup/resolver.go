package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"suffixrank/internal/domain"
)

var (
	ErrEmptyHost = errors.New("lookup: empty host")
	ErrNoSuffix  = errors.New("lookup: no public suffix matches host")
)

// SuffixFinder returns the stored suffixes matching any of the candidates, ignoring case.
type SuffixFinder interface {
	FindSuffixes(ctx context.Context, candidates []string) ([]domain.PublicSuffix, error)
}

// Result describes how a host splits around its public suffix.
type Result struct {
	Host   string
	Suffix string
	Domain string // label left of Suffix, empty when the host is itself a suffix
	TLD    string

	AbuseScore float64
	Scored     bool
}

// Registrable returns Domain joined with Suffix.
func (r Result) Registrable() string {
	if r.Domain == "" {
		return ""
	}
	return r.Domain + "." + r.Suffix
}

type Resolver struct {
	store  SuffixFinder
	scores map[string]float64
}

// NewResolver builds a resolver over the stored suffixes and the TLD abuse scores.
// scores may be nil.
func NewResolver(store SuffixFinder, scores map[string]float64) *Resolver {
	if scores == nil {
		scores = map[string]float64{}
	}
	return &Resolver{store: store, scores: scores}
}

func (r *Resolver) Resolve(ctx context.Context, raw string) (Result, error) {
	if r == nil || r.store == nil {
		return Result{}, errors.New("lookup: resolver has no suffix store")
	}

	host := NormalizeHost(raw)
	if host == "" {
		return Result{}, ErrEmptyHost
	}

	labels := strings.Split(host, ".")
	for _, label := range labels {
		if label == "" {
			return Result{}, fmt.Errorf("lookup: malformed host %q", raw)
		}
	}

	rows, err := r.store.FindSuffixes(ctx, candidates(labels))
	if err != nil {
		return Result{}, fmt.Errorf("lookup: find suffixes: %w", err)
	}

	matched := make(map[string]struct{}, len(rows)*2)
	for _, row := range rows {
		matched[strings.ToLower(row.Suffix)] = struct{}{}
		matched[strings.ToLower(row.PunycodeSuffix)] = struct{}{}
	}

	start, ok := prevailingRule(labels, matched)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoSuffix, host)
	}

	res := Result{
		Host:   host,
		Suffix: strings.Join(labels[start:], "."),
		TLD:    labels[len(labels)-1],
	}
	if start > 0 {
		res.Domain = labels[start-1]
	}
	res.AbuseScore, res.Scored = r.score(res.TLD)

	log.Debug("Host resolved", "host", host, "suffix", res.Suffix, "domain", res.Domain, "score", res.AbuseScore)
	return res, nil
}

func (r *Resolver) score(tld string) (float64, bool) {
	if s, ok := r.scores[tld]; ok {
		return s, true
	}
	if s, ok := r.scores["."+tld]; ok {
		return s, true
	}
	return 0, false
}

// NormalizeHost accepts a bare host or a URL and returns its lowercase
// ASCII-compatible hostname without surrounding dots.
func NormalizeHost(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}

	host := strings.Trim(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return ""
	}

	canonical, ok := domain.CanonicalForm(host)
	if !ok {
		log.Debug("Host kept in original form", "host", host)
	}
	return strings.ToLower(canonical)
}

// candidates lists every rule that could apply to the host: each trailing
// label run, its wildcard parent and its exception form.
func candidates(labels []string) []string {
	out := make([]string, 0, len(labels)*3)
	for i := range labels {
		name := strings.Join(labels[i:], ".")
		out = append(out, name, "!"+name)
		if i+1 < len(labels) {
			out = append(out, "*."+strings.Join(labels[i+1:], "."))
		}
	}
	return out
}

// prevailingRule returns the index of the first label of the public suffix.
// Exception rules win over everything else; otherwise the longest match wins.
func prevailingRule(labels []string, matched map[string]struct{}) (int, bool) {
	has := func(rule string) bool {
		_, ok := matched[rule]
		return ok
	}

	for i := range labels {
		if i+1 < len(labels) && has("!"+strings.Join(labels[i:], ".")) {
			return i + 1, true
		}
	}

	for i := range labels {
		if has(strings.Join(labels[i:], ".")) {
			return i, true
		}
		if i+1 < len(labels) && has("*."+strings.Join(labels[i+1:], ".")) {
			return i, true
		}
	}

	return 0, false
}
