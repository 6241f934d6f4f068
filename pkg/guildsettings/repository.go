package guildsettings

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsModel struct {
	GuildID string `gorm:"primaryKey"`

	TimeoutHours   int `gorm:"default:72"`
	Blocklist      datatypes.JSONSlice[string]
	LogChannelID   string
	VerifiedRoleID string

	RallyRoleID          string
	RallyChannelID       string
	RallyAllowedRoles    datatypes.JSONSlice[string]
	RallyTriggerChannels datatypes.JSONSlice[string]

	VerificationEnabled bool
	RallyEnabled        bool
}

func (SettingsModel) TableName() string {
	return "guild_settings"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&SettingsModel{})
}

func (r *Repository) Get(ctx context.Context, guildID string) (Settings, error) {
	var row SettingsModel
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		GuildID:              row.GuildID,
		TimeoutHours:         row.TimeoutHours,
		Blocklist:            row.Blocklist,
		LogChannelID:         row.LogChannelID,
		VerifiedRoleID:       row.VerifiedRoleID,
		RallyRoleID:          row.RallyRoleID,
		RallyChannelID:       row.RallyChannelID,
		RallyAllowedRoles:    row.RallyAllowedRoles,
		RallyTriggerChannels: row.RallyTriggerChannels,
		VerificationEnabled:  row.VerificationEnabled,
		RallyEnabled:         row.RallyEnabled,
	}, nil
}

func (r *Repository) Save(ctx context.Context, settings Settings) error {
	row := SettingsModel{
		GuildID:              settings.GuildID,
		TimeoutHours:         settings.TimeoutHours,
		Blocklist:            settings.Blocklist,
		LogChannelID:         settings.LogChannelID,
		VerifiedRoleID:       settings.VerifiedRoleID,
		RallyRoleID:          settings.RallyRoleID,
		RallyChannelID:       settings.RallyChannelID,
		RallyAllowedRoles:    settings.RallyAllowedRoles,
		RallyTriggerChannels: settings.RallyTriggerChannels,
		VerificationEnabled:  settings.VerificationEnabled,
		RallyEnabled:         settings.RallyEnabled,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}
