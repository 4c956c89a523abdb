package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/clip-orchestrator/domain/errors"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

type processingModel struct {
	ProcessingID string    `gorm:"column:processing_id;primaryKey"`
	OrderID      string    `gorm:"column:order_id;uniqueIndex"`
	OriginalURL  string    `gorm:"column:original_url"`
	VideoType    string    `gorm:"column:video_type"`
	Status       string    `gorm:"column:status"`
	Attempts     int       `gorm:"column:attempts"`
	ClipCreated  bool      `gorm:"column:clip_created"`
	ClipURL      *string   `gorm:"column:clip_url"`
	ErrorMessage string    `gorm:"column:error_message"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (processingModel) TableName() string { return "video_processings" }

type accountModel struct {
	AccountID    string    `gorm:"column:account_id;primaryKey"`
	Identity     string    `gorm:"column:identity"`
	Status       string    `gorm:"column:status"`
	DailyClips   int       `gorm:"column:daily_clips"`
	DailyLimit   int       `gorm:"column:daily_limit"`
	LastClipDate time.Time `gorm:"column:last_clip_date"`
	TotalClips   int64     `gorm:"column:total_clips"`
}

func (accountModel) TableName() string { return "automation_accounts" }

func (r *Repository) SelectAvailable(ctx context.Context, today time.Time) (entities.Account, bool, error) {
	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var row accountModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.AccountStatusActive)).
		Where("daily_clips < daily_limit OR last_clip_date < ?", startOfDay).
		Order("last_clip_date ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, false, nil
		}
		return entities.Account{}, false, err
	}

	// Lazy rollover: stale counters are reset before the account is handed out.
	if row.LastClipDate.Before(startOfDay) && row.DailyClips != 0 {
		if err := r.db.WithContext(ctx).
			Model(&accountModel{}).
			Where("account_id = ?", row.AccountID).
			Update("daily_clips", 0).
			Error; err != nil {
			return entities.Account{}, false, err
		}
		row.DailyClips = 0
	}
	return row.toEntity(), true, nil
}

func (r *Repository) RecordUsage(ctx context.Context, accountID string, today time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row accountModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", strings.TrimSpace(accountID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrAccountNotFound
			}
			return err
		}
		return tx.Model(&accountModel{}).
			Where("account_id = ?", row.AccountID).
			Updates(map[string]any{
				"daily_clips":    row.DailyClips + 1,
				"total_clips":    row.TotalClips + 1,
				"last_clip_date": today.UTC(),
			}).Error
	})
}

func (r *Repository) ResetDailyCounters(ctx context.Context, today time.Time) (int, error) {
	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	result := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("daily_clips > 0 AND last_clip_date < ?", startOfDay).
		Update("daily_clips", 0)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) CreateProcessing(ctx context.Context, item entities.Processing) error {
	row := processingModelFromEntity(item)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.New("processing already exists for order")
		}
		return err
	}
	return nil
}

func (r *Repository) GetByOrder(ctx context.Context, orderID string) (entities.Processing, error) {
	var row processingModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", strings.TrimSpace(orderID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Processing{}, domainerrors.ErrProcessingNotFound
		}
		return entities.Processing{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdateProcessing(ctx context.Context, item entities.Processing) error {
	var clipURL *string
	if item.ClipURL != "" {
		value := item.ClipURL
		clipURL = &value
	}
	result := r.db.WithContext(ctx).
		Model(&processingModel{}).
		Where("order_id = ?", strings.TrimSpace(item.OrderID)).
		Updates(map[string]any{
			"status":        string(item.Status),
			"attempts":      item.Attempts,
			"clip_created":  item.ClipCreated,
			"clip_url":      clipURL,
			"error_message": item.ErrorMessage,
			"updated_at":    item.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProcessingNotFound
	}
	return nil
}

func (m processingModel) toEntity() entities.Processing {
	item := entities.Processing{
		ProcessingID: m.ProcessingID,
		OrderID:      m.OrderID,
		OriginalURL:  m.OriginalURL,
		VideoType:    entities.VideoType(m.VideoType),
		Status:       entities.ProcessingStatus(m.Status),
		Attempts:     m.Attempts,
		ClipCreated:  m.ClipCreated,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ClipURL != nil {
		item.ClipURL = *m.ClipURL
	}
	return item
}

func processingModelFromEntity(item entities.Processing) processingModel {
	row := processingModel{
		ProcessingID: strings.TrimSpace(item.ProcessingID),
		OrderID:      strings.TrimSpace(item.OrderID),
		OriginalURL:  strings.TrimSpace(item.OriginalURL),
		VideoType:    string(item.VideoType),
		Status:       string(item.Status),
		Attempts:     item.Attempts,
		ClipCreated:  item.ClipCreated,
		ErrorMessage: item.ErrorMessage,
		CreatedAt:    item.CreatedAt.UTC(),
		UpdatedAt:    item.UpdatedAt.UTC(),
	}
	if item.ClipURL != "" {
		value := item.ClipURL
		row.ClipURL = &value
	}
	return row
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		AccountID:    m.AccountID,
		Identity:     m.Identity,
		Status:       entities.AccountStatus(m.Status),
		DailyClips:   m.DailyClips,
		DailyLimit:   m.DailyLimit,
		LastClipDate: m.LastClipDate,
		TotalClips:   m.TotalClips,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
