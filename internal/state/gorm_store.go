package state

import (
	"context"
	"encoding/json"
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

type stateRow struct {
	InstanceID     string    `gorm:"primaryKey;size:191"`
	ConversationID string    `gorm:"primaryKey;size:191"`
	RecordJSON     string    `gorm:"type:text;not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (stateRow) TableName() string {
	return "conversation_states"
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	store := &GormStore{db: gormDB}
	if err := gormDB.AutoMigrate(&stateRow{}); err != nil {
		return nil, fmt.Errorf("migrate state store: %w", err)
	}
	return store, nil
}

func (s *GormStore) Get(ctx context.Context, instanceID, conversationID string) (Record, bool, error) {
	if err := validateStateKeyFields(instanceID, conversationID); err != nil {
		return Record{}, false, err
	}

	var row stateRow
	err := s.db.WithContext(ctx).
		Where("instance_id = ? AND conversation_id = ?", instanceID, conversationID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get conversation state: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(row.RecordJSON), &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode conversation state: %w", err)
	}
	return rec, true, nil
}

func (s *GormStore) Set(ctx context.Context, instanceID, conversationID string, rec Record) error {
	if err := validateStateKeyFields(instanceID, conversationID); err != nil {
		return err
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}
	row := stateRow{
		InstanceID:     instanceID,
		ConversationID: conversationID,
		RecordJSON:     string(encoded),
		UpdatedAt:      time.Now().UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}, {Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"record_json", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set conversation state: %w", err)
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
