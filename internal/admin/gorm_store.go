package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/thamiris-ramos/BotServer/internal/db"
)

type GormStore struct {
	db *gorm.DB
}

type valueRow struct {
	InstanceID string    `gorm:"primaryKey;size:191"`
	Key        string    `gorm:"primaryKey;size:191"`
	Value      string    `gorm:"type:text"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (valueRow) TableName() string {
	return "admin_values"
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open admin store: %w", err)
	}
	store := &GormStore{db: gormDB}
	if err := gormDB.AutoMigrate(&valueRow{}); err != nil {
		return nil, fmt.Errorf("migrate admin store: %w", err)
	}
	return store, nil
}

func (s *GormStore) GetValue(ctx context.Context, instanceID, key string) (string, error) {
	if err := validateKeyFields(instanceID, key); err != nil {
		return "", err
	}

	var row valueRow
	err := s.db.WithContext(ctx).
		Where("instance_id = ? AND key = ?", instanceID, key).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get value %s/%s: %w", instanceID, key, err)
	}
	return row.Value, nil
}

// SetValue upserts atomically on the (instance_id, key) primary key.
func (s *GormStore) SetValue(ctx context.Context, instanceID, key, value string) error {
	if err := validateKeyFields(instanceID, key); err != nil {
		return err
	}

	row := valueRow{
		InstanceID: instanceID,
		Key:        key,
		Value:      value,
		UpdatedAt:  time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set value %s/%s: %w", instanceID, key, err)
	}
	return nil
}

func (s *GormStore) DeleteValue(ctx context.Context, instanceID, key string) error {
	if err := validateKeyFields(instanceID, key); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Where("instance_id = ? AND key = ?", instanceID, key).
		Delete(&valueRow{}).Error
	if err != nil {
		return fmt.Errorf("delete value %s/%s: %w", instanceID, key, err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
