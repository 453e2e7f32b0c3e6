package registry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/thamiris-ramos/BotServer/internal/db"
)

type GormRegistry struct {
	db *gorm.DB
}

type instanceRow struct {
	BotID                         string `gorm:"primaryKey;size:191"`
	InstanceID                    string `gorm:"size:191;not null;uniqueIndex"`
	Title                         string `gorm:"size:191;not null"`
	WebchatKey                    string `gorm:"size:191"`
	MarketplaceID                 string `gorm:"size:191"`
	MarketplacePassword           string `gorm:"size:191"`
	AuthenticatorAuthorityHostURL string `gorm:"size:512"`
	AuthenticatorTenant           string `gorm:"size:191"`
	AuthenticatorClientID         string `gorm:"size:191"`
	AuthenticatorClientSecret     string `gorm:"size:191"`
	BotEndpoint                   string `gorm:"size:512"`
	SpeechKey                     string `gorm:"size:191"`
	Theme                         string `gorm:"size:191"`
}

func (instanceRow) TableName() string {
	return "instances"
}

func NewGormRegistry(driver, dsn string) (*GormRegistry, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open instance registry: %w", err)
	}
	reg := &GormRegistry{db: gormDB}
	if err := gormDB.AutoMigrate(&instanceRow{}); err != nil {
		return nil, fmt.Errorf("migrate instance registry: %w", err)
	}
	return reg, nil
}

// Register upserts by bot id so config-file seeds can be re-applied at every
// boot without duplicating rows.
func (r *GormRegistry) Register(ctx context.Context, instance Instance) error {
	if err := validateInstance(instance); err != nil {
		return err
	}
	row := rowFromInstance(instance)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("register instance %q: %w", instance.BotID, err)
	}
	return nil
}

func (r *GormRegistry) LoadInstance(ctx context.Context, botID string) (Instance, error) {
	var row instanceRow
	err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Instance{}, ErrInstanceNotFound
		}
		return Instance{}, fmt.Errorf("load instance %q: %w", botID, err)
	}
	return row.toInstance(), nil
}

func (r *GormRegistry) All(ctx context.Context) ([]Instance, error) {
	var rows []instanceRow
	if err := r.db.WithContext(ctx).Order("bot_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	out := make([]Instance, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toInstance())
	}
	return out, nil
}

func (r *GormRegistry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func rowFromInstance(instance Instance) instanceRow {
	return instanceRow{
		BotID:                         instance.BotID,
		InstanceID:                    instance.InstanceID,
		Title:                         instance.Title,
		WebchatKey:                    instance.WebchatKey,
		MarketplaceID:                 instance.MarketplaceID,
		MarketplacePassword:           instance.MarketplacePassword,
		AuthenticatorAuthorityHostURL: instance.AuthenticatorAuthorityHostURL,
		AuthenticatorTenant:           instance.AuthenticatorTenant,
		AuthenticatorClientID:         instance.AuthenticatorClientID,
		AuthenticatorClientSecret:     instance.AuthenticatorClientSecret,
		BotEndpoint:                   instance.BotEndpoint,
		SpeechKey:                     instance.SpeechKey,
		Theme:                         instance.Theme,
	}
}

func (r instanceRow) toInstance() Instance {
	return Instance{
		InstanceID:                    r.InstanceID,
		BotID:                         r.BotID,
		Title:                         r.Title,
		WebchatKey:                    r.WebchatKey,
		MarketplaceID:                 r.MarketplaceID,
		MarketplacePassword:           r.MarketplacePassword,
		AuthenticatorAuthorityHostURL: r.AuthenticatorAuthorityHostURL,
		AuthenticatorTenant:           r.AuthenticatorTenant,
		AuthenticatorClientID:         r.AuthenticatorClientID,
		AuthenticatorClientSecret:     r.AuthenticatorClientSecret,
		BotEndpoint:                   r.BotEndpoint,
		SpeechKey:                     r.SpeechKey,
		Theme:                         r.Theme,
	}
}
