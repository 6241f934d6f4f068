package membership

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MemberModel is the gorm row backing a Record.
type MemberModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	DiscordID string `gorm:"index:idx_members_discord_guild,unique"`
	GuildID   string `gorm:"index:idx_members_discord_guild,unique"`

	Status Status `gorm:"index;default:pending"`

	RSIHandle         string         `gorm:"index"`
	CitizenRecord     string
	Orgs              datatypes.JSON `gorm:"type:jsonb"`
	RSIAccountCreated string
	VerifiedAt        *time.Time

	JoinedAt time.Time
	KickedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MemberModel) TableName() string {
	return "members"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MemberModel{})
}

func (r *Repository) Get(ctx context.Context, discordID, guildID string) (Record, error) {
	var row MemberModel
	err := r.db.WithContext(ctx).
		Where("discord_id = ? AND guild_id = ?", discordID, guildID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return toRecord(row)
}

func (r *Repository) Create(ctx context.Context, record Record) error {
	row, err := toModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) Update(ctx context.Context, record Record) error {
	row, err := toModel(record)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&MemberModel{}).
		Where("discord_id = ? AND guild_id = ?", record.DiscordID, record.GuildID).
		Updates(map[string]interface{}{
			"status":              row.Status,
			"rsi_handle":          row.RSIHandle,
			"citizen_record":      row.CitizenRecord,
			"orgs":                row.Orgs,
			"rsi_account_created": row.RSIAccountCreated,
			"verified_at":         row.VerifiedAt,
			"joined_at":           row.JoinedAt,
			"kicked_at":           row.KickedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) FindByHandle(ctx context.Context, guildID, handle string) (Record, error) {
	var row MemberModel
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND rsi_handle = ?", guildID, handle).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return toRecord(row)
}

func (r *Repository) ListPending(ctx context.Context) ([]Record, error) {
	var rows []MemberModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Repository) CountByStatus(ctx context.Context, guildID string) (map[Status]int64, error) {
	type statusCount struct {
		Status Status
		Count  int64
	}

	var counts []statusCount
	if err := r.db.WithContext(ctx).
		Model(&MemberModel{}).
		Select("status, count(*) as count").
		Where("guild_id = ?", guildID).
		Group("status").
		Find(&counts).Error; err != nil {
		return nil, err
	}

	out := make(map[Status]int64, len(counts))
	for _, c := range counts {
		out[c.Status] = c.Count
	}
	return out, nil
}

func toModel(record Record) (MemberModel, error) {
	var orgs datatypes.JSON
	if record.Orgs != nil {
		raw, err := json.Marshal(record.Orgs)
		if err != nil {
			return MemberModel{}, err
		}
		orgs = datatypes.JSON(raw)
	}

	return MemberModel{
		DiscordID:         record.DiscordID,
		GuildID:           record.GuildID,
		Status:            record.Status,
		RSIHandle:         record.RSIHandle,
		CitizenRecord:     record.CitizenRecord,
		Orgs:              orgs,
		RSIAccountCreated: record.RSIAccountCreated,
		VerifiedAt:        record.VerifiedAt,
		JoinedAt:          record.JoinedAt,
		KickedAt:          record.KickedAt,
	}, nil
}

func toRecord(row MemberModel) (Record, error) {
	var orgs []rsi.Org
	if len(row.Orgs) > 0 {
		if err := json.Unmarshal(row.Orgs, &orgs); err != nil {
			return Record{}, err
		}
	}

	return Record{
		DiscordID:         row.DiscordID,
		GuildID:           row.GuildID,
		Status:            row.Status,
		RSIHandle:         row.RSIHandle,
		CitizenRecord:     row.CitizenRecord,
		Orgs:              orgs,
		RSIAccountCreated: row.RSIAccountCreated,
		VerifiedAt:        row.VerifiedAt,
		JoinedAt:          row.JoinedAt,
		KickedAt:          row.KickedAt,
	}, nil
}
