package web

import (
	"errors"
	"net/http"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/identlink"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"github.com/gorilla/mux"
)

// Gateway is the slice of platform operations the callback flow needs.
type Gateway interface {
	GuildName(guildID string) (string, error)
	AddRole(guildID, userID, roleID string) error
	SendDM(userID, content string) error
	SendChannelMessage(channelID, content string) error
}

// Handler serves the identity-link redirect and callback endpoints.
type Handler struct {
	links    *identlink.Service
	members  *membership.Service
	settings *guildsettings.Service
	gateway  Gateway
	catalog  *messages.Catalog
	events   *events.Publisher
}

func NewHandler(links *identlink.Service, members *membership.Service, settings *guildsettings.Service, gateway Gateway, catalog *messages.Catalog, publisher *events.Publisher) *Handler {
	return &Handler{
		links:    links,
		members:  members,
		settings: settings,
		gateway:  gateway,
		catalog:  catalog,
		events:   publisher,
	}
}

func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(Logging)
	router.Use(Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/auth/start", h.handleStart).Methods(http.MethodGet)
	router.HandleFunc("/auth/callback", h.handleCallback).Methods(http.MethodGet)
	return router
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guild")
	userID := r.URL.Query().Get("user")

	if guildID == "" || userID == "" {
		http.Error(w, "Missing guild or user parameter", http.StatusBadRequest)
		return
	}

	// The record exists from the first verification attempt on, so the
	// timeout clock is anchored even for members who joined before the bot.
	if _, err := h.members.EnsureRecord(r.Context(), userID, guildID); err != nil {
		logger.WithError(err).Error("Could not ensure membership record")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	authURL, err := h.links.BeginAuthorization(r.Context(), userID, guildID)
	if err != nil {
		logger.WithError(err).Error("Could not begin authorization")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	link, err := h.links.CompleteAuthorization(r.Context(), code, state)
	if err != nil {
		h.renderLinkError(w, link, err)
		return
	}

	settings, err := h.settings.Get(r.Context(), link.GuildID)
	if err != nil {
		logger.WithError(err).Error("Could not load guild settings during callback")
		writeHTML(w, http.StatusInternalServerError, failurePage())
		return
	}

	blocked := rsi.Blocked(link.Profile.Orgs, settings.Blocklist)

	record, err := h.members.ApplyIdentityResult(r.Context(), link.DiscordID, link.GuildID, link.Profile, blocked)
	if errors.Is(err, membership.ErrAlreadyVerified) {
		writeHTML(w, http.StatusOK, alreadyVerifiedPage(record.RSIHandle))
		return
	}
	if err != nil {
		logger.WithError(err).Error("Could not apply identity result")
		writeHTML(w, http.StatusInternalServerError, failurePage())
		return
	}

	h.afterCommit(r, record, settings)

	if record.Status == membership.StatusFlagged {
		writeHTML(w, http.StatusOK, flaggedPage(record.RSIHandle))
		return
	}
	writeHTML(w, http.StatusOK, verifiedPage(record.RSIHandle))
}

// afterCommit runs every best-effort side effect of a committed identity
// result: role grant, member DM, audit line, lifecycle event. None of them
// can undo the transition.
func (h *Handler) afterCommit(r *http.Request, record membership.Record, settings guildsettings.Settings) {
	ctx := r.Context()
	log := logger.WithFields(map[string]interface{}{
		"discord_id": record.DiscordID,
		"guild_id":   record.GuildID,
	})

	verified := record.Status == membership.StatusVerified

	if verified && settings.VerifiedRoleID != "" {
		if err := h.gateway.AddRole(record.GuildID, record.DiscordID, settings.VerifiedRoleID); err != nil {
			log.WithError(err).Warn("Could not grant verified role")
		}
	}

	guildName, err := h.gateway.GuildName(record.GuildID)
	if err != nil {
		guildName = "the server"
	}

	dm := h.catalog.FlaggedDMText(record.RSIHandle)
	if verified {
		dm = h.catalog.VerifiedDMText(record.RSIHandle, guildName)
	}
	if err := h.gateway.SendDM(record.DiscordID, dm); err != nil {
		log.Warn("Could not DM member after verification")
	}

	if settings.LogChannelID != "" {
		orgList := messages.OrgList(record.Orgs)
		audit := h.catalog.FlaggedAuditText(record.DiscordID, record.RSIHandle, record.CitizenRecord, orgList, record.RSIAccountCreated)
		if verified {
			audit = h.catalog.VerifiedAuditText(record.DiscordID, record.RSIHandle, record.CitizenRecord, orgList, record.RSIAccountCreated)
		}
		if err := h.gateway.SendChannelMessage(settings.LogChannelID, audit); err != nil {
			log.Warn("Could not send verification log message")
		}
	}

	eventType := events.TypeMemberFlagged
	if verified {
		eventType = events.TypeMemberVerified
	}
	h.events.Publish(ctx, eventType, record.GuildID, record.DiscordID, map[string]interface{}{
		"handle": record.RSIHandle,
	})
}

func (h *Handler) renderLinkError(w http.ResponseWriter, link identlink.Link, err error) {
	switch {
	case errors.Is(err, identlink.ErrInvalidState):
		writeHTML(w, http.StatusBadRequest, expiredPage())
	case errors.Is(err, identlink.ErrExpiredState):
		writeHTML(w, http.StatusBadRequest, expiredPage())
	case errors.Is(err, identlink.ErrNotLinked):
		writeHTML(w, http.StatusOK, notLinkedPage())
	default:
		var upstream *identlink.UpstreamError
		if errors.As(err, &upstream) {
			logger.WithError(err).WithField("status", upstream.Status).Error("Identity provider failure")
			writeHTML(w, http.StatusBadGateway, failurePage())
			return
		}
		logger.WithError(err).WithFields(map[string]interface{}{
			"discord_id": link.DiscordID,
			"guild_id":   link.GuildID,
		}).Error("OAuth callback failed")
		writeHTML(w, http.StatusInternalServerError, failurePage())
	}
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
