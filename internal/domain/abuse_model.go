package domain

// AbuseRecord is one parsed line of an abuse ranking feed.
type AbuseRecord struct {
	// Key is the lowercased ranking token, usually a TLD.
	Key   string
	Count uint64
}

// AbuseScore is an AbuseRecord scaled into [0,1] against the largest count of its feed.
type AbuseScore struct {
	Key   string
	Score float64
}

type SkipReason string

const (
	SkipTooFewFields SkipReason = "too_few_fields"
	SkipInvalidCount SkipReason = "invalid_count"
)

// LineResult is either a parsed record or a skipped line with the reason it was dropped.
type LineResult struct {
	Record  AbuseRecord
	Skipped bool
	Reason  SkipReason
}

func Parsed(record AbuseRecord) LineResult {
	return LineResult{Record: record}
}

func Skip(reason SkipReason) LineResult {
	return LineResult{Skipped: true, Reason: reason}
}
