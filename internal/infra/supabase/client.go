package supabase

import (
	"fmt"
	"sync"
	"time"

	"reader-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/supabase-go"
)

const (
	// userCacheTTL bounds how long a validated token is trusted without asking GoTrue again.
	userCacheTTL     = time.Minute
	userCacheMaxSize = 1024
)

type cachedUser struct {
	user      *domain.SupabaseUser
	expiresAt time.Time
}

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	client *supabase.Client
	config domain.Config
	logger domain.Logger

	now      func() time.Time
	maxUsers int

	mu    sync.RWMutex
	users map[string]cachedUser // by access token
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) domain.SupabaseClient {
	return &SupabaseClient{
		config:   config,
		logger:   logger,
		now:      time.Now,
		maxUsers: userCacheMaxSize,
		users:    make(map[string]cachedUser),
	}
}

// Initialize establishes a connection to Supabase
func (s *SupabaseClient) Initialize() error {
	supabaseURL := s.config.GetSupabaseURL()
	supabaseKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}

	s.client = client
	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return nil
}

// GetClientWithToken returns a client whose PostgREST calls carry the user's
// token so row level security applies.
func (s *SupabaseClient) GetClientWithToken(token string) (*supabase.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	if token == "" {
		return s.client, nil
	}
	return supabase.NewClient(s.config.GetSupabaseURL(), s.config.GetSupabaseKey(), &supabase.ClientOptions{
		Headers: map[string]string{"Authorization": "Bearer " + token},
	})
}

// ValidateToken resolves the user behind an access token. Results are cached
// until the token's exp claim or userCacheTTL, whichever comes first.
func (s *SupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	now := s.now()
	s.mu.RLock()
	cached, ok := s.users[token]
	s.mu.RUnlock()
	if ok && now.Before(cached.expiresAt) {
		return cached.user, nil
	}

	// Headers on the Supabase client do not reach GoTrue, so use an auth client bound to the token.
	user, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		s.mu.Lock()
		delete(s.users, token)
		s.mu.Unlock()
		s.logger.Warn("Failed to validate token with Supabase", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	domainUser := &domain.SupabaseUser{
		ID:    user.ID.String(),
		Email: user.Email,
	}

	expiresAt := cacheExpiry(token, now)
	if expiresAt.After(now) {
		s.mu.Lock()
		s.pruneLocked(now)
		s.users[token] = cachedUser{user: domainUser, expiresAt: expiresAt}
		s.mu.Unlock()
	}
	return domainUser, nil
}

// pruneLocked drops expired entries and, if the cache is still full, enough
// arbitrary ones to make room for one more.
func (s *SupabaseClient) pruneLocked(now time.Time) {
	if len(s.users) < s.maxUsers {
		return
	}
	for token, entry := range s.users {
		if !now.Before(entry.expiresAt) {
			delete(s.users, token)
		}
	}
	for token := range s.users {
		if len(s.users) < s.maxUsers {
			return
		}
		delete(s.users, token)
	}
}

// cacheExpiry reads the exp claim without verifying the signature; GoTrue
// already vouched for the token.
func cacheExpiry(token string, now time.Time) time.Time {
	expiresAt := now.Add(userCacheTTL)
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return expiresAt
	}
	if exp := claims.ExpiresAt.Time; exp.Before(expiresAt) {
		return exp
	}
	return expiresAt
}
