package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Account is a row of the account index.
type Account struct {
	Key       string `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	// LastRefreshAt is nil until a refresh token has been redeemed.
	LastRefreshAt *time.Time
}

// index maps file keys back to user ids. It never decides whether a
// credential exists, the files do.
type index struct {
	db *gorm.DB
}

func openIndex(dsn string) (*index, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open account index: %w", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("migrate account index: %w", err)
	}
	return &index{db: db}, nil
}

func (ix *index) upsert(ctx context.Context, key, userID string) error {
	acc := Account{Key: key, UserID: userID}
	return ix.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&acc).Error
}

// markRefreshed stamps an existing row. It reports whether a row matched.
func (ix *index) markRefreshed(ctx context.Context, key string, at time.Time) (bool, error) {
	res := ix.db.WithContext(ctx).Model(&Account{}).
		Where("key = ?", key).
		Update("last_refresh_at", at)
	return res.RowsAffected > 0, res.Error
}

func (ix *index) remove(ctx context.Context, key string) error {
	return ix.db.WithContext(ctx).Where("key = ?", key).Delete(&Account{}).Error
}

func (ix *index) list(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := ix.db.WithContext(ctx).Order("user_id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (ix *index) close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
