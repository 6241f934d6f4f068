package permissions

import (
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/bwmarrin/discordgo"
)

// Capability enumerates the guarded operations. Every command or trigger
// evaluates exactly one capability through Authorized instead of re-deriving
// role logic at its call site.
type Capability int

const (
	AdministerConfig Capability = iota
	ModerateMembers
	TriggerRally
)

// Actor is the triggering member as seen by the gateway: resolved role IDs
// and the effective permission bits in the source channel.
type Actor struct {
	ID          string
	RoleIDs     []string
	Permissions int64
}

func (a Actor) isAdministrator() bool {
	return a.Permissions&discordgo.PermissionAdministrator != 0
}

func (a Actor) hasAnyRole(roleIDs []string) bool {
	for _, have := range a.RoleIDs {
		for _, want := range roleIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Authorized reports whether the actor may exercise the capability in the
// given guild. Administrators pass every check.
func Authorized(actor Actor, settings guildsettings.Settings, capability Capability) bool {
	if actor.isAdministrator() {
		return true
	}

	switch capability {
	case AdministerConfig:
		return actor.Permissions&discordgo.PermissionManageServer != 0
	case ModerateMembers:
		return actor.Permissions&discordgo.PermissionModerateMembers != 0
	case TriggerRally:
		return actor.hasAnyRole(settings.RallyAllowedRoles)
	default:
		return false
	}
}
