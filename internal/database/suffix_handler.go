package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"suffixrank/internal/domain"
)

const defaultInsertBatchSize = 500

// SuffixStore persists public suffixes into the psl table.
type SuffixStore struct {
	db        *gorm.DB
	batchSize int
}

func NewSuffixStore(db *gorm.DB, batchSize int) *SuffixStore {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}
	return &SuffixStore{db: db, batchSize: batchSize}
}

func (s *SuffixStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("database not initialised")
	}
	if ctx != nil {
		return s.db.WithContext(ctx), nil
	}
	return s.db, nil
}

// InsertSuffixes inserts records in order. Rows that collide with an existing
// suffix or canonical form (ignoring case) are skipped; only new rows are counted.
func (s *SuffixStore) InsertSuffixes(ctx context.Context, records []domain.SuffixRecord) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]domain.PublicSuffix, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Model())
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, s.batchSize)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (s *SuffixStore) CountSuffixes(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&domain.PublicSuffix{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListSuffixes returns every stored row in insertion order.
func (s *SuffixStore) ListSuffixes(ctx context.Context) ([]domain.PublicSuffix, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.PublicSuffix
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindSuffixes returns the rows whose suffix or canonical form matches any candidate, ignoring case.
func (s *SuffixStore) FindSuffixes(ctx context.Context, candidates []string) ([]domain.PublicSuffix, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lowered = append(lowered, strings.ToLower(c))
	}

	var rows []domain.PublicSuffix
	err = db.
		Where("lower(punycode_suffix) IN ? OR lower(suffix) IN ?", lowered, lowered).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
