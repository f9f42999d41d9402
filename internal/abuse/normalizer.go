package abuse

import (
	"sort"
	"strconv"
	"strings"

	"suffixrank/internal/domain"
)

const scoreDecimals = 4

// ParseOutcome holds the records kept from a feed in first-seen order.
type ParseOutcome struct {
	Records    []domain.AbuseRecord
	Skipped    map[domain.SkipReason]int
	Duplicates int
}

func (o ParseOutcome) SkippedTotal() int {
	total := 0
	for _, n := range o.Skipped {
		total += n
	}
	return total
}

// ParseLine reads one ranking line. The key is the second whitespace token,
// the count is the last one. A two-token line uses its second token for both.
func ParseLine(line string) domain.LineResult {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return domain.Skip(domain.SkipTooFewFields)
	}

	key := strings.ToLower(strings.TrimSpace(parts[1]))
	count, ok := parseCount(strings.TrimSpace(parts[len(parts)-1]))
	if !ok {
		return domain.Skip(domain.SkipInvalidCount)
	}

	return domain.Parsed(domain.AbuseRecord{Key: key, Count: count})
}

func parseCount(raw string) (uint64, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Parse applies ParseLine to every line. The first parsed count of a key wins.
func Parse(lines []string) ParseOutcome {
	out := ParseOutcome{Skipped: make(map[domain.SkipReason]int)}
	seen := make(map[string]struct{}, len(lines))

	for _, line := range lines {
		res := ParseLine(line)
		if res.Skipped {
			out.Skipped[res.Reason]++
			continue
		}
		if _, dup := seen[res.Record.Key]; dup {
			out.Duplicates++
			continue
		}
		seen[res.Record.Key] = struct{}{}
		out.Records = append(out.Records, res.Record)
	}

	return out
}

// MaxCount returns the largest count, or 1 for an empty set.
func MaxCount(records []domain.AbuseRecord) uint64 {
	var max uint64
	for _, r := range records {
		if r.Count > max {
			max = r.Count
		}
	}
	if max == 0 && len(records) == 0 {
		return 1
	}
	return max
}

// Normalize scales each count by the largest one and rounds to four decimals.
func Normalize(records []domain.AbuseRecord) map[string]float64 {
	scores := make(map[string]float64, len(records))
	max := MaxCount(records)

	for _, r := range records {
		if max == 0 {
			// every count is zero
			scores[r.Key] = 0
			continue
		}
		scores[r.Key] = roundScore(float64(r.Count) / float64(max))
	}

	return scores
}

// roundScore rounds half to even on the exact binary value.
func roundScore(v float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', scoreDecimals, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}

// Rank orders scores descending. Equal scores are ordered by key.
func Rank(scores map[string]float64) []domain.AbuseScore {
	ranked := make([]domain.AbuseScore, 0, len(scores))
	for key, score := range scores {
		ranked = append(ranked, domain.AbuseScore{Key: key, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].Key < ranked[j].Key
		}
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
