package shopper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/cart"
	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/events"
	"github.com/Cheertaboi/storefront-checkout/internal/session"
	"github.com/Cheertaboi/storefront-checkout/internal/storage"
)

var ErrNoShopper = errors.New("shopper id is required")

// Shopper bundles the state owned by one browser.
type Shopper struct {
	ID      string
	Session *session.Provider
	Cart    *cart.Manager
	// API is the backend client authenticated with this shopper's session.
	API *client.Client

	lastSeen atomic.Int64
	ready    chan struct{}
	err      error
}

func (s *Shopper) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Shopper) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Registry hands out shoppers by browser id, restoring persisted session
// and cart on first use.
type Registry struct {
	base   *client.Client
	store  storage.Store
	events events.Publisher
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	shoppers map[string]*Shopper
}

type Option func(*Registry)

// WithStateTTL bounds how long an untouched session or cart is persisted.
func WithStateTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.events = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(base *client.Client, store storage.Store, opts ...Option) *Registry {
	r := &Registry{
		base:     base,
		store:    store,
		events:   events.NopPublisher{},
		log:      zerolog.Nop(),
		now:      time.Now,
		shoppers: make(map[string]*Shopper),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func SessionKey(id string) string { return "session:" + id }
func CartKey(id string) string    { return "cart:" + id }

func (r *Registry) Get(ctx context.Context, id string) (*Shopper, error) {
	if id == "" {
		return nil, ErrNoShopper
	}

	r.mu.Lock()
	s, ok := r.shoppers[id]
	if !ok {
		s = r.build(id)
		r.shoppers[id] = s
	}
	r.mu.Unlock()

	if !ok {
		s.err = r.restore(ctx, s)
		close(s.ready)
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		r.forget(id, s)
		return nil, s.err
	}
	s.touch(r.now())
	return s, nil
}

func (r *Registry) build(id string) *Shopper {
	log := r.log.With().Str("shopper", id).Logger()
	provider := session.NewProvider(r.base, r.store, SessionKey(id),
		session.WithTTL(r.ttl),
		session.WithLogger(log),
		session.WithClock(r.now),
	)
	api := r.base.WithTokenSource(provider)
	s := &Shopper{
		ID:      id,
		Session: provider,
		API:     api,
		Cart: cart.New(api,
			cart.WithState(cart.NewStoredState(r.store, CartKey(id), r.ttl)),
			cart.WithPublisher(r.events),
			cart.WithOwner(id),
			cart.WithLogger(log),
		),
		ready: make(chan struct{}),
	}
	s.touch(r.now())
	return s
}

func (r *Registry) restore(ctx context.Context, s *Shopper) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.Session.Restore(ctx); err != nil {
		return err
	}
	return s.Cart.Load(ctx)
}

func (r *Registry) forget(id string, s *Shopper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shoppers[id] == s {
		delete(r.shoppers, id)
	}
}

// Logout ends the shopper's session and empties their cart.
func (r *Registry) Logout(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.Join(s.Session.Logout(ctx), s.Cart.Clear(ctx))
}

// Sweep drops shoppers idle for longer than maxIdle from memory. Their
// persisted state is untouched and restored on the next Get.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.shoppers {
		select {
		case <-s.ready:
		default:
			continue
		}
		if s.LastSeen().Before(cutoff) {
			delete(r.shoppers, id)
			n++
		}
	}
	if n > 0 {
		r.log.Debug().Int("evicted", n).Int("active", len(r.shoppers)).Msg("shopper sweep")
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxIdle)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shoppers)
}
