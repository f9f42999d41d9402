package domain

// SuffixRecord pairs a public suffix with its ASCII-compatible form.
type SuffixRecord struct {
	Suffix    string
	Canonical string

	// Fallback is set when IDNA encoding failed and Canonical repeats Suffix.
	Fallback bool
}

// PublicSuffix is the persisted form of a SuffixRecord.
// Both columns are unique ignoring case; the indexes are created by the database package.
type PublicSuffix struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Suffix         string `gorm:"not null"`
	PunycodeSuffix string `gorm:"not null"`
}

func (PublicSuffix) TableName() string {
	return "psl"
}

func (r SuffixRecord) Model() PublicSuffix {
	return PublicSuffix{
		Suffix:         r.Suffix,
		PunycodeSuffix: r.Canonical,
	}
}
