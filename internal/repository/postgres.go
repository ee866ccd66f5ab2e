package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresStore backs the order/settlement store with Postgres via gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	if cfg == nil || cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := db.AutoMigrate(&model.Order{}, &model.Settlement{}, &model.ActivityLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder performs the conditional claim write. The WHERE clause
// on the current status makes concurrent executors race on the row
// update; exactly one wins, the rest see ErrConflict.
func (s *PostgresStore) TransitionOrder(ctx context.Context, id string, from, to model.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) SetNextRun(ctx context.Context, id string, at *time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"next_run_at": at, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Order, error) {
	var orders []*model.Order
	err := s.db.WithContext(ctx).
		Where("execution_type <> ? AND next_run_at IS NOT NULL AND next_run_at <= ?", model.ExecutionOnce, now).
		Order("next_run_at ASC").
		Find(&orders).Error
	return orders, err
}

func (s *PostgresStore) SaveSettlement(ctx context.Context, settlement *model.Settlement) error {
	return s.db.WithContext(ctx).Save(settlement).Error
}

func (s *PostgresStore) GetSettlement(ctx context.Context, orderID string) (*model.Settlement, error) {
	var settlement model.Settlement
	err := s.db.WithContext(ctx).First(&settlement, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (s *PostgresStore) ListSettlementsByWallet(ctx context.Context, wallet string) ([]*model.Settlement, error) {
	var settlements []*model.Settlement
	err := s.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Find(&settlements).Error
	return settlements, err
}

func (s *PostgresStore) InsertActivity(ctx context.Context, entry *model.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
