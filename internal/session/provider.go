package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/storage"
)

var (
	ErrCredentialsRequired  = errors.New("username and password are required")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrLoginFailed          = errors.New("login failed")
	ErrRegistrationRejected = errors.New("registration failed, check your details")
	ErrRegistrationFailed   = errors.New("registration failed, please try again later")
)

type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
}

// Provider owns one browser's session: created on login, destroyed on
// logout, persisted in between.
type Provider struct {
	auth  Authenticator
	store storage.Store
	key   string
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	current *Session
}

type Option func(*Provider)

func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.ttl = ttl }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(auth Authenticator, store storage.Store, key string, opts ...Option) *Provider {
	p := &Provider{
		auth:  auth,
		store: store,
		key:   key,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Restore loads a persisted session. Expired sessions are dropped.
func (p *Provider) Restore(ctx context.Context) error {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Token == "" {
		p.log.Warn().Str("key", p.key).Msg("discarding unreadable session")
		return p.store.Delete(ctx, p.key)
	}
	if s.Expired(p.now()) {
		p.log.Info().Str("key", p.key).Msg("persisted session expired")
		return p.store.Delete(ctx, p.key)
	}
	p.mu.Lock()
	p.current = &s
	p.mu.Unlock()
	return nil
}

// Current returns a copy of the active session, or nil.
func (p *Provider) Current() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	s := *p.current
	return &s
}

// Token makes the provider a client.TokenSource.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return ""
	}
	return p.current.Token
}

func (p *Provider) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	resp, err := p.auth.Login(ctx, models.LoginRequest{Username: username, Password: password})
	if err != nil {
		if client.KindOf(err) == client.KindUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return p.start(ctx, username, resp), nil
}

// Register creates an account. When the backend hands back a token the
// session starts right away, otherwise the returned session is nil and the
// user is expected to log in.
func (p *Provider) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	req := models.RegisterRequest{Username: username, Email: strings.TrimSpace(email), Password: password}
	resp, err := p.auth.Register(ctx, req)
	if err != nil {
		switch client.KindOf(err) {
		case client.KindValidation, client.KindUnauthorized:
			return nil, fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if resp == nil || resp.Token == "" {
		return nil, nil
	}
	return p.start(ctx, username, resp), nil
}

func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (p *Provider) start(ctx context.Context, username string, resp *models.AuthResponse) *Session {
	s := &Session{
		Token:     resp.Token,
		Role:      ParseRole(resp.Role),
		Username:  username,
		CreatedAt: p.now().UTC(),
	}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	ttl := p.ttl
	if exp, ok := s.ExpiresAt(); ok {
		if left := exp.Sub(p.now()); left > 0 && (ttl == 0 || left < ttl) {
			ttl = left
		}
	}
	raw, err := json.Marshal(s)
	if err == nil {
		err = p.store.Set(ctx, p.key, raw, ttl)
	}
	if err != nil {
		// the in-memory session stays usable
		p.log.Warn().Err(err).Str("key", p.key).Msg("persist session")
	}
	p.log.Info().Str("user", username).Str("role", string(s.Role)).Msg("session started")

	out := *s
	return &out
}
