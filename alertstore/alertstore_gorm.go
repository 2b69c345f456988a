package alertstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/haven-community/vigil/profile"
)

type GormAlertStore struct {
	DB *gorm.DB
}

var _ AlertStore = (*GormAlertStore)(nil)

type alertRow struct {
	ID              string `gorm:"primaryKey"`
	AuthorID        string `gorm:"index"`
	Severity        string `gorm:"index"`
	RiskScore       float64
	Flags           []string `gorm:"serializer:json"`
	Status          string   `gorm:"index"`
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	ResolutionNotes string
}

func (alertRow) TableName() string {
	return "alerts"
}

func NewGormAlertStore(db *gorm.DB) (*GormAlertStore, error) {
	if err := db.AutoMigrate(&alertRow{}); err != nil {
		return nil, fmt.Errorf("migrating alerts table: %w", err)
	}
	return &GormAlertStore{DB: db}, nil
}

func rowToAlert(r *alertRow) *Alert {
	return &Alert{
		ID:              r.ID,
		AuthorID:        r.AuthorID,
		Severity:        profile.Severity(r.Severity),
		RiskScore:       r.RiskScore,
		Flags:           r.Flags,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		ResolvedAt:      r.ResolvedAt,
		ResolutionNotes: r.ResolutionNotes,
	}
}

func (s *GormAlertStore) Add(ctx context.Context, alert *Alert) error {
	row := alertRow{
		ID:              alert.ID,
		AuthorID:        alert.AuthorID,
		Severity:        string(alert.Severity),
		RiskScore:       alert.RiskScore,
		Flags:           alert.Flags,
		Status:          alert.Status,
		CreatedAt:       alert.CreatedAt,
		ResolvedAt:      alert.ResolvedAt,
		ResolutionNotes: alert.ResolutionNotes,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("writing alert: %w", err)
	}
	return nil
}

func (s *GormAlertStore) Get(ctx context.Context, id string) (*Alert, error) {
	var row alertRow
	err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("reading alert %s: %w", id, err)
	}
	return rowToAlert(&row), nil
}

func (s *GormAlertStore) List(ctx context.Context, q ListQuery) ([]*Alert, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	tx := s.DB.WithContext(ctx).Model(&alertRow{}).Order("created_at DESC")
	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Severity != "" {
		tx = tx.Where("severity = ?", string(q.Severity))
	}
	var rows []alertRow
	if err := tx.Offset(q.Offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	out := make([]*Alert, len(rows))
	for i := range rows {
		out[i] = rowToAlert(&rows[i])
	}
	return out, nil
}

func (s *GormAlertStore) UpdateStatus(ctx context.Context, id, status, notes string, now time.Time) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid alert status: %s", status)
	}
	updates := map[string]any{"status": status}
	if status == StatusResolved {
		ts := now.UTC()
		updates["resolved_at"] = &ts
		updates["resolution_notes"] = notes
	}
	res := s.DB.WithContext(ctx).Model(&alertRow{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating alert %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormAlertStore) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&alertRow{}).Where("status = ?", status).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting alerts: %w", err)
	}
	return int(n), nil
}
