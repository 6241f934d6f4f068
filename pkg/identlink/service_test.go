package identlink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeProvider implements the UCI token and profile endpoints.
type fakeProvider struct {
	*httptest.Server

	tokenStatus    int
	profileStatus  int
	profileBody    interface{}
	lastTokenForm  url.Values
	accessToken    string
	profileAuthHdr string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		tokenStatus:   http.StatusOK,
		profileStatus: http.StatusOK,
		accessToken:   "secret-access-token",
		profileBody: map[string]interface{}{
			"handle":          "SpaceAce",
			"citizen_record":  "12345",
			"orgs":            []map[string]string{{"name": "RagTag", "tag": "RTAG", "rank": "Member"}},
			"account_created": "2020-01-01",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.lastTokenForm = r.PostForm
		if p.tokenStatus != http.StatusOK {
			http.Error(w, `{"error":"server_error"}`, p.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": p.accessToken,
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		p.profileAuthHdr = r.Header.Get("Authorization")
		if p.profileStatus != http.StatusOK {
			http.Error(w, "nope", p.profileStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.profileBody)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

func newTestService(t *testing.T, p *fakeProvider) *Service {
	t.Helper()
	return NewService(Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/auth/callback",
		AuthorizeURL: p.URL + "/oauth/authorize",
		TokenURL:     p.URL + "/oauth/token",
		ProfileURL:   p.URL + "/api/profile",
	}, NewMemoryStateStore())
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestBeginAuthorizationURL(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)

	authURL, err := svc.BeginAuthorization(context.Background(), "user1", "guild1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Len(t, q.Get("state"), 64)
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestCompleteAuthorizationHappyPath(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	link, err := svc.CompleteAuthorization(ctx, "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "user1", link.DiscordID)
	assert.Equal(t, "guild1", link.GuildID)
	require.NotNil(t, link.Profile)
	assert.Equal(t, "SpaceAce", link.Profile.Handle)
	assert.Equal(t, "12345", link.Profile.CitizenRecord)

	// PKCE verifier travels with the exchange, and the credential is sent as
	// a bearer token on the profile fetch.
	assert.NotEmpty(t, p.lastTokenForm.Get("code_verifier"))
	assert.Equal(t, "Bearer secret-access-token", p.profileAuthHdr)
}

func TestCompleteAuthorizationUnknownState(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)

	_, err := svc.CompleteAuthorization(context.Background(), "auth-code", "never-issued")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorizationSingleUse(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	_, err = svc.CompleteAuthorization(ctx, "auth-code", state)
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorizationExpiredState(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)
	ctx := context.Background()

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return issued })

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	svc.WithClock(func() time.Time { return issued.Add(11 * time.Minute) })

	_, err = svc.CompleteAuthorization(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrExpiredState)

	// Expired consumption still burns the token.
	_, err = svc.CompleteAuthorization(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorizationTokenExchangeFails(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusInternalServerError
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(ctx, "auth-code", stateFromAuthURL(t, authURL))
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	// The access credential must not leak through the error text.
	assert.NotContains(t, upstream.Error(), "secret-access-token")
}

func TestCompleteAuthorizationNotLinked(t *testing.T) {
	p := newFakeProvider(t)
	p.profileStatus = http.StatusNotFound
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)

	link, err := svc.CompleteAuthorization(ctx, "auth-code", stateFromAuthURL(t, authURL))
	assert.ErrorIs(t, err, ErrNotLinked)
	// The member identity still comes back so the caller can respond to them.
	assert.Equal(t, "user1", link.DiscordID)
}

func TestCompleteAuthorizationEmptyHandleMeansNotLinked(t *testing.T) {
	p := newFakeProvider(t)
	p.profileBody = map[string]interface{}{"handle": ""}
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(ctx, "auth-code", stateFromAuthURL(t, authURL))
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestCompleteAuthorizationWithoutVerifier(t *testing.T) {
	p := newFakeProvider(t)
	svc := newTestService(t, p)
	ctx := context.Background()

	authURL, err := svc.BeginAuthorization(ctx, "user1", "guild1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	// Simulate a restart between authorize and callback: the verifier cache
	// is gone but the persisted state survives.
	svc.verifiers = newVerifierStore(StateTTL, time.Now)

	_, err = svc.CompleteAuthorization(ctx, "auth-code", state)
	require.NoError(t, err)
	assert.Empty(t, p.lastTokenForm.Get("code_verifier"))
}
