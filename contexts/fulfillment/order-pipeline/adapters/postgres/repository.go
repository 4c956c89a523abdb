package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/internal/shared/events"
	"boostpanel/internal/shared/outbox"
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

type orderModel struct {
	OrderID      string          `gorm:"column:order_id;primaryKey"`
	UserID       string          `gorm:"column:user_id;index"`
	ServiceID    string          `gorm:"column:service_id"`
	Link         string          `gorm:"column:link"`
	VideoID      string          `gorm:"column:video_id"`
	Quantity     int             `gorm:"column:quantity"`
	Charge       decimal.Decimal `gorm:"column:charge;type:numeric(20,4)"`
	StartCount   int64           `gorm:"column:start_count"`
	Remains      int             `gorm:"column:remains"`
	Status       string          `gorm:"column:status;index"`
	ErrorMessage string          `gorm:"column:error_message"`
	Coefficient  decimal.Decimal `gorm:"column:coefficient;type:numeric(10,4)"`
	ResumeCount  int             `gorm:"column:resume_count"`
	Version      int64           `gorm:"column:version"`
	ActivatedAt  *time.Time      `gorm:"column:activated_at"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

type serviceModel struct {
	ServiceID    string          `gorm:"column:service_id;primaryKey"`
	Name         string          `gorm:"column:name"`
	PricePer1000 decimal.Decimal `gorm:"column:price_per_1000;type:numeric(20,4)"`
	MinQuantity  int             `gorm:"column:min_quantity"`
	MaxQuantity  int             `gorm:"column:max_quantity"`
	Geo          string          `gorm:"column:geo"`
	Active       bool            `gorm:"column:active"`
}

func (serviceModel) TableName() string { return "services" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	OrderID     string     `gorm:"column:order_id;index"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status;index"`
	RetryCount  int        `gorm:"column:retry_count"`
	LastError   string     `gorm:"column:last_error"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "order_outbox" }

func (r *Repository) CreateOrder(ctx context.Context, order entities.Order) error {
	row := orderModelFromEntity(order)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.New("order already exists")
		}
		return err
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (entities.Order, error) {
	var row orderModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", strings.TrimSpace(orderID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Order{}, domainerrors.ErrOrderNotFound
		}
		return entities.Order{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]entities.Order, error) {
	var rows []orderModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return ordersFromModels(rows), nil
}

func (r *Repository) ListOrdersByStatus(ctx context.Context, status entities.OrderStatus, limit int) ([]entities.Order, error) {
	var rows []orderModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return ordersFromModels(rows), nil
}

// UpdateOrder writes back the full row guarded by the version column. A zero
// row count means another writer got there first.
func (r *Repository) UpdateOrder(ctx context.Context, order entities.Order, expectedVersion int64) error {
	row := orderModelFromEntity(order)
	result := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("order_id = ? AND version = ?", row.OrderID, expectedVersion).
		Updates(map[string]any{
			"video_id":      row.VideoID,
			"start_count":   row.StartCount,
			"remains":       row.Remains,
			"status":        row.Status,
			"error_message": row.ErrorMessage,
			"coefficient":   row.Coefficient,
			"resume_count":  row.ResumeCount,
			"version":       row.Version,
			"activated_at":  row.ActivatedAt,
			"updated_at":    row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).
			Model(&orderModel{}).
			Where("order_id = ?", row.OrderID).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domainerrors.ErrOrderNotFound
		}
		return errors.New("order version conflict")
	}
	return nil
}

func (r *Repository) GetService(ctx context.Context, serviceID string) (entities.Service, error) {
	var row serviceModel
	err := r.db.WithContext(ctx).
		Where("service_id = ?", strings.TrimSpace(serviceID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Service{}, domainerrors.ErrServiceNotFound
		}
		return entities.Service{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListServices(ctx context.Context) ([]entities.Service, error) {
	var rows []serviceModel
	if err := r.db.WithContext(ctx).Order("service_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	services := make([]entities.Service, 0, len(rows))
	for _, row := range rows {
		services = append(services, row.toEntity())
	}
	return services, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  envelope.EventID,
		EventType: envelope.EventType,
		OrderID:   envelope.OrderID,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: envelope.OccurredAtUTC,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	records := make([]outbox.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, outbox.Record{
			OutboxID:    row.OutboxID,
			EventType:   row.EventType,
			OrderID:     row.OrderID,
			Payload:     row.Payload,
			Status:      row.Status,
			RetryCount:  row.RetryCount,
			CreatedAt:   row.CreatedAt,
			PublishedAt: row.PublishedAt,
			LastError:   row.LastError,
		})
	}
	return records, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, recordID string, publishedAt time.Time) error {
	at := publishedAt.UTC()
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", recordID).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": &at,
		}).Error
}

func (r *Repository) MarkOutboxFailed(ctx context.Context, recordID string, reason string) error {
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", recordID).
		Updates(map[string]any{
			"status":      outbox.StatusFailed,
			"last_error":  reason,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

func (m orderModel) toEntity() entities.Order {
	return entities.Order{
		OrderID:      m.OrderID,
		UserID:       m.UserID,
		ServiceID:    m.ServiceID,
		Link:         m.Link,
		VideoID:      m.VideoID,
		Quantity:     m.Quantity,
		Charge:       m.Charge,
		StartCount:   m.StartCount,
		Remains:      m.Remains,
		Status:       entities.OrderStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		Coefficient:  m.Coefficient,
		ResumeCount:  m.ResumeCount,
		Version:      m.Version,
		ActivatedAt:  m.ActivatedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func orderModelFromEntity(order entities.Order) orderModel {
	return orderModel{
		OrderID:      strings.TrimSpace(order.OrderID),
		UserID:       strings.TrimSpace(order.UserID),
		ServiceID:    strings.TrimSpace(order.ServiceID),
		Link:         strings.TrimSpace(order.Link),
		VideoID:      order.VideoID,
		Quantity:     order.Quantity,
		Charge:       order.Charge,
		StartCount:   order.StartCount,
		Remains:      order.Remains,
		Status:       string(order.Status),
		ErrorMessage: order.ErrorMessage,
		Coefficient:  order.Coefficient,
		ResumeCount:  order.ResumeCount,
		Version:      order.Version,
		ActivatedAt:  order.ActivatedAt,
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
	}
}

func ordersFromModels(rows []orderModel) []entities.Order {
	orders := make([]entities.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toEntity())
	}
	return orders
}

func (m serviceModel) toEntity() entities.Service {
	return entities.Service{
		ServiceID:    m.ServiceID,
		Name:         m.Name,
		PricePer1000: m.PricePer1000,
		MinQuantity:  m.MinQuantity,
		MaxQuantity:  m.MaxQuantity,
		Geo:          m.Geo,
		Active:       m.Active,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
