package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/menugr/menugr/pkg/database"
)

// SavedCart is the row shape of the "sql" driver.
type SavedCart struct {
	EntryKey  string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the gorm table name.
func (SavedCart) TableName() string { return "saved_carts" }

// SQL stores keys in the saved_carts table.
type SQL struct {
	db *gorm.DB
}

// NewSQL migrates the saved_carts table on db.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&SavedCart{}); err != nil {
		return nil, fmt.Errorf("kvstore/sql: migrate: %w", err)
	}
	return &SQL{db: db}, nil
}

// NewSQLFromConfig opens DB_DRIVER/DATABASE_DSN and migrates the table.
func NewSQLFromConfig() (*SQL, error) {
	db, err := database.Connect()
	if err != nil {
		return nil, fmt.Errorf("kvstore/sql: %w", err)
	}
	return NewSQL(db)
}

// Get implements Store.
func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	var row SavedCart
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore/sql: get %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Set implements Store.
func (s *SQL) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	row := SavedCart{EntryKey: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("kvstore/sql: set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQL) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&SavedCart{}).Error; err != nil {
		return fmt.Errorf("kvstore/sql: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the connection.
func (s *SQL) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
