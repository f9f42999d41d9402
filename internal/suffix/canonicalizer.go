package suffix

import (
	"sort"
	"strings"
	"unicode/utf8"

	"suffixrank/internal/domain"
)

// PSL comments start with "//". Lines starting with "#" are dropped as well.
var commentPrefixes = []string{"//", "#"}

// FilterLines trims every line and drops blanks and comments.
func FilterLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isComment(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isComment(line string) bool {
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// SortUnique removes exact duplicates and orders entries by rune length, then codepoint order.
func SortUnique(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	unique := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		unique = append(unique, e)
	}

	sort.Slice(unique, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(unique[i]), utf8.RuneCountInString(unique[j])
		if li != lj {
			return li < lj
		}
		return unique[i] < unique[j]
	})

	return unique
}

// Canonicalize pairs every entry with its ASCII-compatible form. Entries are never dropped.
func Canonicalize(entries []string) []domain.SuffixRecord {
	records := make([]domain.SuffixRecord, 0, len(entries))
	for _, e := range entries {
		canonical, ok := domain.CanonicalForm(e)
		records = append(records, domain.SuffixRecord{
			Suffix:    e,
			Canonical: canonical,
			Fallback:  !ok,
		})
	}
	return records
}

// Build turns raw list lines into ordered, deduplicated suffix records.
func Build(lines []string) []domain.SuffixRecord {
	return Canonicalize(SortUnique(FilterLines(lines)))
}
