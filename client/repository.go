package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PendingOrder is an order the server has not acknowledged yet, together
// with the request that replays it.
type PendingOrder struct {
	Order   models.Order
	Request OrderRequest
}

// Repository is the client-side fallback copy of orders, keyed by Reference.
type Repository interface {
	// RecordOrder inserts or replaces the order with the same Reference. A
	// recorded order is no longer pending.
	RecordOrder(ctx context.Context, order models.Order) error
	// RecordPending stores an order the server has not seen, keeping the
	// caller's request as sent so optional fields stay unset on replay.
	RecordPending(ctx context.Context, order models.Order, req OrderRequest) error
	// Pending returns the orders waiting to be replayed, oldest first.
	Pending(ctx context.Context) ([]PendingOrder, error)
	// Remove forgets an order. Unknown references are ignored.
	Remove(ctx context.Context, reference string) error
	// RecordStatus rewrites the status of a stored order. ErrNotFound when
	// the reference is unknown.
	RecordStatus(ctx context.Context, reference string, status models.OrderStatus) error
	// Orders returns stored orders in the order they were first recorded.
	Orders(ctx context.Context) ([]models.Order, error)
}

// MemoryRepository keeps the fallback copy for the lifetime of the process.
type MemoryRepository struct {
	mu       sync.Mutex
	refs     []string
	orders   map[string]models.Order
	requests map[string]OrderRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:   make(map[string]models.Order),
		requests: make(map[string]OrderRequest),
	}
}

func (r *MemoryRepository) RecordOrder(ctx context.Context, order models.Order) error {
	if order.Reference == "" {
		return apperrors.Validation("order reference is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(order)
	delete(r.requests, order.Reference)
	return nil
}

func (r *MemoryRepository) RecordPending(ctx context.Context, order models.Order, req OrderRequest) error {
	if order.Reference == "" || order.Reference != req.Reference {
		return apperrors.Validation("order and request must share a reference")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(order)
	r.requests[order.Reference] = req
	return nil
}

func (r *MemoryRepository) putLocked(order models.Order) {
	if _, ok := r.orders[order.Reference]; !ok {
		r.refs = append(r.refs, order.Reference)
	}
	r.orders[order.Reference] = order
}

func (r *MemoryRepository) Pending(ctx context.Context) ([]PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PendingOrder
	for _, ref := range r.refs {
		if req, ok := r.requests[ref]; ok {
			out = append(out, PendingOrder{Order: r.orders[ref], Request: req})
		}
	}
	return out, nil
}

func (r *MemoryRepository) Remove(ctx context.Context, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[reference]; !ok {
		return nil
	}
	delete(r.orders, reference)
	delete(r.requests, reference)
	for i, ref := range r.refs {
		if ref == reference {
			r.refs = append(r.refs[:i], r.refs[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) RecordStatus(ctx context.Context, reference string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[reference]
	if !ok {
		return apperrors.NotFound("order %s not found locally", reference)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.orders[reference] = o
	return nil
}

func (r *MemoryRepository) Orders(ctx context.Context) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, 0, len(r.refs))
	for _, ref := range r.refs {
		out = append(out, r.orders[ref])
	}
	return out, nil
}

// localOrder is one row of the durable fallback file. The order is kept as a
// JSON document so the client does not need the server's relational schema.
type localOrder struct {
	Reference string `gorm:"primaryKey"`
	Status    string `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	// Request holds the replay request while the server has not acknowledged
	// the order, and is empty afterwards.
	Request   string `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (localOrder) TableName() string { return "local_orders" }

// SQLiteRepository persists the fallback copy in a sqlite file so it survives
// restarts.
type SQLiteRepository struct {
	db *gorm.DB
}

// OpenSQLiteRepository opens (or creates) the fallback database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local order cache: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&localOrder{}); err != nil {
		return nil, fmt.Errorf("migrate local order cache: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) RecordOrder(ctx context.Context, order models.Order) error {
	if order.Reference == "" {
		return apperrors.Validation("order reference is required")
	}
	return r.upsert(ctx, order, "")
}

func (r *SQLiteRepository) RecordPending(ctx context.Context, order models.Order, req OrderRequest) error {
	if order.Reference == "" || order.Reference != req.Reference {
		return apperrors.Validation("order and request must share a reference")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.upsert(ctx, order, string(raw))
}

func (r *SQLiteRepository) upsert(ctx context.Context, order models.Order, request string) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	row := localOrder{
		Reference: order.Reference,
		Status:    string(order.Status),
		Payload:   string(payload),
		Request:   request,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "payload", "request", "updated_at"}),
	}).Create(&row).Error
}

func (r *SQLiteRepository) Pending(ctx context.Context) ([]PendingOrder, error) {
	var rows []localOrder
	if err := r.db.WithContext(ctx).Where("request <> ''").Order("created_at asc, reference asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]PendingOrder, 0, len(rows))
	for _, row := range rows {
		var p PendingOrder
		if err := json.Unmarshal([]byte(row.Payload), &p.Order); err != nil {
			return nil, fmt.Errorf("decode local order %s: %w", row.Reference, err)
		}
		if err := json.Unmarshal([]byte(row.Request), &p.Request); err != nil {
			return nil, fmt.Errorf("decode pending request %s: %w", row.Reference, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, reference string) error {
	return r.db.WithContext(ctx).Delete(&localOrder{}, "reference = ?", reference).Error
}

func (r *SQLiteRepository) RecordStatus(ctx context.Context, reference string, status models.OrderStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row localOrder
		if err := tx.First(&row, "reference = ?", reference).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("order %s not found locally", reference)
			}
			return err
		}
		var order models.Order
		if err := json.Unmarshal([]byte(row.Payload), &order); err != nil {
			return fmt.Errorf("decode local order %s: %w", reference, err)
		}
		order.Status = status
		order.UpdatedAt = time.Now()
		payload, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return tx.Model(&row).Updates(map[string]any{
			"status":  string(status),
			"payload": string(payload),
		}).Error
	})
}

func (r *SQLiteRepository) Orders(ctx context.Context) ([]models.Order, error) {
	var rows []localOrder
	if err := r.db.WithContext(ctx).Order("created_at asc, reference asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		var order models.Order
		if err := json.Unmarshal([]byte(row.Payload), &order); err != nil {
			return nil, fmt.Errorf("decode local order %s: %w", row.Reference, err)
		}
		out = append(out, order)
	}
	return out, nil
}
