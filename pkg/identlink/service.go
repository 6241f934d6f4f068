package identlink

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"golang.org/x/oauth2"
)

// StateTTL is the single-use correlation token window.
const StateTTL = 10 * time.Minute

// Options configures the identity link service against the UCI provider.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
}

// Link is a completed identity exchange tied back to the member who started it.
type Link struct {
	DiscordID string
	GuildID   string
	Profile   *rsi.Profile
}

// Service runs the authorization-code + PKCE round trip with the identity
// provider and resolves the returned identity to a citizen profile.
type Service struct {
	oauth      *oauth2.Config
	profileURL string
	states     StateStore
	verifiers  *verifierStore
	httpClient *http.Client
	now        func() time.Time
}

func NewService(opts Options, states StateStore) *Service {
	now := time.Now
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  opts.AuthorizeURL,
				TokenURL: opts.TokenURL,
			},
			Scopes: []string{"profile", "organizations"},
		},
		profileURL: opts.ProfileURL,
		states:     states,
		verifiers:  newVerifierStore(StateTTL, now),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.verifiers.now = now
	return s
}

// BeginAuthorization issues a correlation token bound to (member, guild),
// generates a PKCE verifier held only in memory, and returns the provider
// authorization URL carrying the token as the anti-CSRF state and the SHA-256
// challenge.
func (s *Service) BeginAuthorization(ctx context.Context, discordID, guildID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.states.Save(ctx, token, State{
		DiscordID: discordID,
		GuildID:   guildID,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return "", err
	}

	verifier := oauth2.GenerateVerifier()
	s.verifiers.Put(token, verifier)

	return s.oauth.AuthCodeURL(token, oauth2.S256ChallengeOption(verifier)), nil
}

// CompleteAuthorization consumes the correlation token, exchanges the
// authorization code for an access credential, and fetches the citizen
// profile. The token is deleted no matter the outcome.
func (s *Service) CompleteAuthorization(ctx context.Context, code, stateToken string) (Link, error) {
	state, err := s.states.Consume(ctx, stateToken)
	if err != nil {
		return Link{}, err
	}

	if s.now().Sub(state.CreatedAt) > StateTTL {
		return Link{}, ErrExpiredState
	}

	link := Link{DiscordID: state.DiscordID, GuildID: state.GuildID}

	var opts []oauth2.AuthCodeOption
	if verifier, ok := s.verifiers.Take(stateToken); ok {
		opts = append(opts, oauth2.VerifierOption(verifier))
	} else {
		// Verifier lost (process restart between authorize and callback).
		// Proceed without it; providers that require PKCE will reject the
		// exchange and the member retries.
		logger.WithFields(map[string]interface{}{
			"discord_id": state.DiscordID,
			"guild_id":   state.GuildID,
		}).Warn("PKCE verifier missing, exchanging without it")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return link, &UpstreamError{Operation: "token exchange", Status: retrieveErr.Response.StatusCode, Err: err}
		}
		return link, &UpstreamError{Operation: "token exchange", Err: err}
	}

	profile, err := s.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return link, err
	}

	link.Profile = profile
	return link, nil
}

func (s *Service) fetchProfile(ctx context.Context, accessToken string) (*rsi.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.profileURL, nil)
	if err != nil {
		return nil, &UpstreamError{Operation: "profile fetch", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Operation: "profile fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotLinked
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Operation: "profile fetch", Status: resp.StatusCode}
	}

	var profile rsi.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, &UpstreamError{Operation: "profile fetch", Err: err}
	}
	if profile.Handle == "" {
		return nil, ErrNotLinked
	}
	return &profile, nil
}
