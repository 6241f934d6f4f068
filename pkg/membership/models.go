package membership

import (
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
)

// Status is the verification state of one member within one guild.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusKicked   Status = "kicked"
	StatusFlagged  Status = "flagged"
)

// Record is the authoritative membership state for a (member, guild) pair.
// Exactly one record exists per pair; records are never hard-deleted.
type Record struct {
	DiscordID string
	GuildID   string

	Status Status

	// RSI identity fields, populated on verification and cleared on revoke.
	RSIHandle         string
	CitizenRecord     string
	Orgs              []rsi.Org
	RSIAccountCreated string
	VerifiedAt        *time.Time

	// JoinedAt anchors the timeout clock and is reset whenever the record
	// re-enters pending (rejoin, revoke).
	JoinedAt time.Time
	KickedAt *time.Time
}
