package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haven-community/vigil/profile"
)

// GormProfileStore persists profiles in a SQL database (postgres or sqlite)
// via gorm. One row per author, upserted on write.
type GormProfileStore struct {
	DB *gorm.DB
}

var _ ProfileStore = (*GormProfileStore)(nil)

type profileRow struct {
	AuthorID         string `gorm:"primaryKey;column:author_id"`
	MessageCount     int64
	TotalRiskScore   float64
	AverageRiskScore float64
	HighRiskCount    int64
	FlagHistory      map[string]int64 `gorm:"serializer:json"`
	TrendingUp       bool
	LastAnalyzedAt   *time.Time
	UpdatedAt        time.Time
}

func (profileRow) TableName() string {
	return "risk_profiles"
}

func NewGormProfileStore(db *gorm.DB) (*GormProfileStore, error) {
	if err := db.AutoMigrate(&profileRow{}); err != nil {
		return nil, fmt.Errorf("migrating risk_profiles table: %w", err)
	}
	return &GormProfileStore{DB: db}, nil
}

func (s *GormProfileStore) GetProfile(ctx context.Context, authorID string) (*profile.Profile, error) {
	var row profileRow
	err := s.DB.WithContext(ctx).First(&row, "author_id = ?", authorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", authorID, err)
	}
	return &profile.Profile{
		AuthorID:         row.AuthorID,
		MessageCount:     row.MessageCount,
		TotalRiskScore:   row.TotalRiskScore,
		AverageRiskScore: row.AverageRiskScore,
		HighRiskCount:    row.HighRiskCount,
		FlagHistory:      row.FlagHistory,
		TrendingUp:       row.TrendingUp,
		LastAnalyzedAt:   row.LastAnalyzedAt,
	}, nil
}

func (s *GormProfileStore) PutProfile(ctx context.Context, p *profile.Profile) error {
	row := profileRow{
		AuthorID:         p.AuthorID,
		MessageCount:     p.MessageCount,
		TotalRiskScore:   p.TotalRiskScore,
		AverageRiskScore: p.AverageRiskScore,
		HighRiskCount:    p.HighRiskCount,
		FlagHistory:      p.FlagHistory,
		TrendingUp:       p.TrendingUp,
		LastAnalyzedAt:   p.LastAnalyzedAt,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "author_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("writing profile %s: %w", p.AuthorID, err)
	}
	return nil
}
