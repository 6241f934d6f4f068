package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/identlink"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeGateway struct {
	mu          sync.Mutex
	rolesAdded  []string
	dms         []string
	channelMsgs []string
}

func (g *fakeGateway) GuildName(string) (string, error) { return "RagTag", nil }

func (g *fakeGateway) AddRole(_, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolesAdded = append(g.rolesAdded, userID+":"+roleID)
	return nil
}

func (g *fakeGateway) SendDM(_, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dms = append(g.dms, content)
	return nil
}

func (g *fakeGateway) SendChannelMessage(_, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channelMsgs = append(g.channelMsgs, content)
	return nil
}

type fixture struct {
	server   *httptest.Server
	members  *membership.Service
	settings *guildsettings.Service
	gateway  *fakeGateway
	profile  map[string]interface{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		gateway:  &fakeGateway{},
		members:  membership.NewService(membership.NewMemoryStore()),
		settings: guildsettings.NewService(guildsettings.NewMemoryStore()),
		profile: map[string]interface{}{
			"handle":          "SpaceAce",
			"citizen_record":  "12345",
			"orgs":            []map[string]string{{"name": "RagTag", "tag": "RTAG", "rank": "Member"}},
			"account_created": "2020-01-01",
		},
	}

	providerMux := http.NewServeMux()
	providerMux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token", "token_type": "bearer", "expires_in": 3600,
		})
	})
	providerMux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.profile)
	})
	provider := httptest.NewServer(providerMux)
	t.Cleanup(provider.Close)

	links := identlink.NewService(identlink.Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/auth/callback",
		AuthorizeURL: provider.URL + "/oauth/authorize",
		TokenURL:     provider.URL + "/oauth/token",
		ProfileURL:   provider.URL + "/api/profile",
	}, identlink.NewMemoryStateStore())

	handler := NewHandler(links, f.members, f.settings, f.gateway, messages.Default(), events.NewPublisher(nil, ""))
	f.server = httptest.NewServer(NewRouter(handler))
	t.Cleanup(f.server.Close)
	return f
}

// startAuth walks /auth/start and returns the state issued for the redirect.
func (f *fixture) startAuth(t *testing.T, guildID, userID string) string {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(f.server.URL + "/auth/start?guild=" + guildID + "&user=" + userID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func (f *fixture) callback(t *testing.T, code, state string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + "/auth/callback?code=" + code + "&state=" + state)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStartMissingParams(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/auth/start?guild=g1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackVerifiesMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.settings.SetVerifiedRole(ctx, "g1", "verified-role")
	require.NoError(t, err)
	_, err = f.settings.SetLogChannel(ctx, "g1", "log-channel")
	require.NoError(t, err)

	state := f.startAuth(t, "g1", "u1")
	resp := f.callback(t, "auth-code", state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := f.members.Lookup(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusVerified, record.Status)
	assert.Equal(t, "SpaceAce", record.RSIHandle)

	assert.Equal(t, []string{"u1:verified-role"}, f.gateway.rolesAdded)
	require.Len(t, f.gateway.dms, 1)
	assert.Contains(t, f.gateway.dms[0], "verified")
	require.Len(t, f.gateway.channelMsgs, 1)
	assert.Contains(t, f.gateway.channelMsgs[0], "SpaceAce")
	assert.Contains(t, f.gateway.channelMsgs[0], "RagTag [RTAG]")
}

func TestCallbackFlagsBlocklistedOrg(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.settings.AddBlocklistTag(ctx, "g1", "rtag")
	require.NoError(t, err)
	_, err = f.settings.SetVerifiedRole(ctx, "g1", "verified-role")
	require.NoError(t, err)

	state := f.startAuth(t, "g1", "u1")
	resp := f.callback(t, "auth-code", state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := f.members.Lookup(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusFlagged, record.Status)

	// Flagged members never receive the verified role.
	assert.Empty(t, f.gateway.rolesAdded)
	require.Len(t, f.gateway.dms, 1)
	assert.Contains(t, f.gateway.dms[0], "flagged")
}

func TestCallbackInvalidState(t *testing.T) {
	f := newFixture(t)

	resp := f.callback(t, "auth-code", "never-issued")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackStateSingleUse(t *testing.T) {
	f := newFixture(t)

	state := f.startAuth(t, "g1", "u1")
	resp := f.callback(t, "auth-code", state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.callback(t, "auth-code", state)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackNotLinked(t *testing.T) {
	f := newFixture(t)
	f.profile = map[string]interface{}{"handle": ""}

	state := f.startAuth(t, "g1", "u1")
	resp := f.callback(t, "auth-code", state)

	// A legitimate outcome, not an error page.
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := f.members.Lookup(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusPending, record.Status)
}

func TestCallbackAlreadyVerified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.members.ApplyIdentityResult(ctx, "u1", "g1", &rsi.Profile{Handle: "Original"}, false)
	require.NoError(t, err)

	state := f.startAuth(t, "g1", "u1")
	resp := f.callback(t, "auth-code", state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := f.members.Lookup(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Original", record.RSIHandle)
	// No side effects fire for the no-op path.
	assert.Empty(t, f.gateway.dms)
}
