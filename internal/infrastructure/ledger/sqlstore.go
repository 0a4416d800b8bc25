package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/infrastructure/database"
	"github.com/payhole/payments/internal/shared/logger"
)

// UnlockRecordModel is the persistence model for the unlock_records table.
type UnlockRecordModel struct {
	Wallet    string    `gorm:"primaryKey;size:64"`
	Signature string    `gorm:"not null;size:128"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (UnlockRecordModel) TableName() string {
	return "unlock_records"
}

func (m *UnlockRecordModel) toDomain() *unlock.UnlockRecord {
	return &unlock.UnlockRecord{
		Wallet:    m.Wallet,
		Signature: m.Signature,
		ExpiresAt: m.ExpiresAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// OpenSQLite opens (creating if needed) the sqlite database at path and
// migrates the unlock_records table.
func OpenSQLite(path string, log logger.Interface) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: database.NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&UnlockRecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate unlock_records: %w", err)
	}

	return db, nil
}

// SQLStore is a gorm-backed ledger.
type SQLStore struct {
	db     *gorm.DB
	now    func() time.Time
	logger logger.Interface
	mu     sync.Mutex
}

var _ unlock.Ledger = (*SQLStore)(nil)

func NewSQLStore(db *gorm.DB, log logger.Interface, opts ...Option) *SQLStore {
	o := applyOptions(opts)
	return &SQLStore{db: db, now: o.now, logger: log}
}

func (s *SQLStore) Upsert(ctx context.Context, wallet, signature string, expiresAt time.Time) (*unlock.UnlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saved UnlockRecordModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findRecord(tx, wallet)
		if err != nil {
			return err
		}

		var previous *unlock.UnlockRecord
		if existing != nil {
			previous = existing.toDomain()
		}
		rec := unlock.Apply(previous, wallet, signature, expiresAt, s.now())

		model := UnlockRecordModel{
			Wallet:    rec.Wallet,
			Signature: rec.Signature,
			ExpiresAt: rec.ExpiresAt,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet"}},
			DoUpdates: clause.AssignmentColumns([]string{"signature", "expires_at", "updated_at"}),
		}).Create(&model).Error; err != nil {
			return err
		}

		return tx.Where("wallet = ?", wallet).First(&saved).Error
	})
	if err != nil {
		s.logger.Errorw("failed to upsert unlock record", "wallet", wallet, "error", err)
		return nil, fmt.Errorf("failed to upsert unlock record: %w", err)
	}

	return saved.toDomain(), nil
}

func (s *SQLStore) Get(ctx context.Context, wallet string) (*unlock.UnlockRecord, error) {
	model, err := findRecord(s.db.WithContext(ctx), wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlock record: %w", err)
	}
	if model == nil {
		return nil, nil
	}
	return model.toDomain(), nil
}

func (s *SQLStore) All(ctx context.Context) ([]*unlock.UnlockRecord, error) {
	var models []UnlockRecordModel
	if err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("wallet ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list unlock records: %w", err)
	}

	records := make([]*unlock.UnlockRecord, len(models))
	for i := range models {
		records[i] = models[i].toDomain()
	}
	unlock.SortByUpdatedDesc(records)
	return records, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&UnlockRecordModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear unlock records: %w", result.Error)
	}

	s.logger.Infow("unlock ledger cleared", "removed", result.RowsAffected)
	return nil
}

func findRecord(db *gorm.DB, wallet string) (*UnlockRecordModel, error) {
	var model UnlockRecordModel
	err := db.Where("wallet = ?", wallet).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}
