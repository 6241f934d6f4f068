package guildsettings

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("guild settings not found")

type Store interface {
	Get(ctx context.Context, guildID string) (Settings, error)
	Save(ctx context.Context, settings Settings) error
}
