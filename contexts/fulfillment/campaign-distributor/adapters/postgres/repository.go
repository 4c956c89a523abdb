package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/campaign-distributor/domain/errors"
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

type fixedCampaignModel struct {
	CampaignID    string `gorm:"column:campaign_id;primaryKey"`
	TrafficSource string `gorm:"column:traffic_source"`
	Priority      int    `gorm:"column:priority"`
	Active        bool   `gorm:"column:active"`
	Geo           string `gorm:"column:geo"`
}

func (fixedCampaignModel) TableName() string { return "fixed_campaigns" }

type assignmentModel struct {
	AssignmentID    string          `gorm:"column:assignment_id;primaryKey"`
	OrderID         string          `gorm:"column:order_id;index"`
	CampaignID      string          `gorm:"column:campaign_id"`
	OfferID         string          `gorm:"column:offer_id"`
	TargetURL       string          `gorm:"column:target_url"`
	Coefficient     decimal.Decimal `gorm:"column:coefficient;type:numeric(6,2)"`
	ClicksRequired  int             `gorm:"column:clicks_required"`
	ClicksDelivered int             `gorm:"column:clicks_delivered"`
	Status          string          `gorm:"column:status"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (assignmentModel) TableName() string { return "campaign_assignments" }

type coefficientModel struct {
	ServiceID   string          `gorm:"column:service_id;primaryKey"`
	WithClip    decimal.Decimal `gorm:"column:with_clip;type:numeric(6,2)"`
	WithoutClip decimal.Decimal `gorm:"column:without_clip;type:numeric(6,2)"`
}

func (coefficientModel) TableName() string { return "conversion_coefficients" }

func (r *Repository) ListActive(ctx context.Context) ([]entities.FixedCampaign, error) {
	var rows []fixedCampaignModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.FixedCampaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.FixedCampaign{
			CampaignID:    row.CampaignID,
			TrafficSource: row.TrafficSource,
			Priority:      row.Priority,
			Active:        row.Active,
			Geo:           row.Geo,
		})
	}
	return items, nil
}

func (r *Repository) CreateAssignment(ctx context.Context, assignment entities.Assignment) error {
	row := assignmentModel{
		AssignmentID:    strings.TrimSpace(assignment.AssignmentID),
		OrderID:         strings.TrimSpace(assignment.OrderID),
		CampaignID:      strings.TrimSpace(assignment.CampaignID),
		OfferID:         strings.TrimSpace(assignment.OfferID),
		TargetURL:       strings.TrimSpace(assignment.TargetURL),
		Coefficient:     assignment.Coefficient,
		ClicksRequired:  assignment.ClicksRequired,
		ClicksDelivered: assignment.ClicksDelivered,
		Status:          string(assignment.Status),
		CreatedAt:       assignment.CreatedAt.UTC(),
		UpdatedAt:       assignment.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidDistribution
		}
		return err
	}
	return nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]entities.Assignment, error) {
	var rows []assignmentModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", strings.TrimSpace(orderID)).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]entities.Assignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, assignmentID string, status entities.AssignmentStatus, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&assignmentModel{}).
		Where("assignment_id = ?", strings.TrimSpace(assignmentID)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAssignmentNotFound
	}
	return nil
}

func (r *Repository) UpdateDelivered(ctx context.Context, assignmentID string, clicksDelivered int, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&assignmentModel{}).
		Where("assignment_id = ?", strings.TrimSpace(assignmentID)).
		Updates(map[string]any{
			"clicks_delivered": clicksDelivered,
			"updated_at":       updatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAssignmentNotFound
	}
	return nil
}

func (r *Repository) GetByService(ctx context.Context, serviceID string) (entities.Coefficient, bool, error) {
	var row coefficientModel
	err := r.db.WithContext(ctx).
		Where("service_id = ?", strings.TrimSpace(serviceID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Coefficient{}, false, nil
		}
		return entities.Coefficient{}, false, err
	}
	return entities.Coefficient{
		ServiceID:   row.ServiceID,
		WithClip:    row.WithClip,
		WithoutClip: row.WithoutClip,
	}, true, nil
}

func (m assignmentModel) toEntity() entities.Assignment {
	return entities.Assignment{
		AssignmentID:    m.AssignmentID,
		OrderID:         m.OrderID,
		CampaignID:      m.CampaignID,
		OfferID:         m.OfferID,
		TargetURL:       m.TargetURL,
		Coefficient:     m.Coefficient,
		ClicksRequired:  m.ClicksRequired,
		ClicksDelivered: m.ClicksDelivered,
		Status:          entities.AssignmentStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
