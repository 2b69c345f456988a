package assessmentstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type GormAssessmentStore struct {
	DB *gorm.DB
}

var _ AssessmentStore = (*GormAssessmentStore)(nil)

type assessmentRow struct {
	ID             string `gorm:"primaryKey"`
	AuthorID       string `gorm:"index:idx_assessments_author_created,priority:1"`
	MessageID      string
	ChannelID      string
	RiskScore      float64
	SentimentScore float64
	Flags          []string  `gorm:"serializer:json"`
	CreatedAt      time.Time `gorm:"index:idx_assessments_author_created,priority:2"`
}

func (assessmentRow) TableName() string {
	return "risk_assessments"
}

func NewGormAssessmentStore(db *gorm.DB) (*GormAssessmentStore, error) {
	if err := db.AutoMigrate(&assessmentRow{}); err != nil {
		return nil, fmt.Errorf("migrating risk_assessments table: %w", err)
	}
	return &GormAssessmentStore{DB: db}, nil
}

func (s *GormAssessmentStore) Add(ctx context.Context, rec *Record) error {
	row := assessmentRow{
		ID:             rec.ID,
		AuthorID:       rec.AuthorID,
		MessageID:      rec.MessageID,
		ChannelID:      rec.ChannelID,
		RiskScore:      rec.RiskScore,
		SentimentScore: rec.SentimentScore,
		Flags:          rec.Flags,
		CreatedAt:      rec.CreatedAt,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("writing assessment record: %w", err)
	}
	return nil
}

func (s *GormAssessmentStore) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []assessmentRow
	err := s.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing assessment records: %w", err)
	}
	out := make([]*Record, len(rows))
	for i := range rows {
		r := rows[i]
		out[i] = &Record{
			ID:             r.ID,
			AuthorID:       r.AuthorID,
			MessageID:      r.MessageID,
			ChannelID:      r.ChannelID,
			RiskScore:      r.RiskScore,
			SentimentScore: r.SentimentScore,
			Flags:          r.Flags,
			CreatedAt:      r.CreatedAt,
		}
	}
	return out, nil
}
