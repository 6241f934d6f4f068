package membership

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("membership record not found")
	ErrAlreadyVerified = errors.New("member already verified")
)

// Store persists membership records. All writes go through read-modify-write
// against the latest persisted value; the (discord, guild) pair is unique.
type Store interface {
	Get(ctx context.Context, discordID, guildID string) (Record, error)
	Create(ctx context.Context, record Record) error
	Update(ctx context.Context, record Record) error
	FindByHandle(ctx context.Context, guildID, handle string) (Record, error)
	ListPending(ctx context.Context) ([]Record, error)
	CountByStatus(ctx context.Context, guildID string) (map[Status]int64, error)
}
