// Package persistence loads and saves the state document across a local
// store and any number of best-effort remote stores.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sorpes/internal/log"
	"sorpes/internal/state"

	"golang.org/x/sync/errgroup"
)

// ErrPersistence wraps failures of the local store. Callers log it; it
// never aborts a user command.
var ErrPersistence = errors.New("persistence failed")

// Provider can load the state document. A nil document means "nothing
// stored".
type Provider interface {
	Name() string
	Load(ctx context.Context) (*state.Document, error)
}

// Saver can store the state document.
type Saver interface {
	Save(ctx context.Context, doc *state.Document) error
}

// Store is both.
type Store interface {
	Provider
	Saver
}

const defaultMirrorTimeout = 15 * time.Second

// Gateway coordinates a primary local store with ranked remote providers
// and fire-and-forget mirrors.
type Gateway struct {
	primary       Store
	providers     []Provider // rank order, primary last
	mirrors       []*mirror
	logger        *log.Logger
	mirrorTimeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Gateway)

func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l.WithComponent(log.ComponentPersistence) }
}

// WithRemote registers a remote store. Remotes outrank the local store on
// load, in registration order, and receive every save as a mirror.
func WithRemote(s Store) Option {
	return func(g *Gateway) {
		g.providers = append(g.providers, s)
		g.mirrors = append(g.mirrors, newMirror(s.Name(), s))
	}
}

// WithProvider registers a load-only remote. Saves reach it some other
// way, for example through the sync worker.
func WithProvider(p Provider) Option {
	return func(g *Gateway) { g.providers = append(g.providers, p) }
}

// WithMirror registers a save-only sink.
func WithMirror(name string, s Saver) Option {
	return func(g *Gateway) { g.mirrors = append(g.mirrors, newMirror(name, s)) }
}

func WithMirrorTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.mirrorTimeout = d
		}
	}
}

// NewGateway builds a gateway around the local store and starts one
// delivery goroutine per mirror. Close stops them.
func NewGateway(primary Store, opts ...Option) *Gateway {
	g := &Gateway{
		primary:       primary,
		logger:        log.Discard(),
		mirrorTimeout: defaultMirrorTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.providers = append(g.providers, primary)
	for _, m := range g.mirrors {
		g.wg.Add(1)
		go g.deliver(m)
	}
	return g
}

// Load fetches every provider concurrently and returns the first non-empty
// document in rank order together with the name of the provider it came
// from. Provider failures are logged and count as empty. When a remote
// wins, its document is written back to the local store. Both results are
// zero when no provider holds anything.
func (g *Gateway) Load(ctx context.Context) (*state.Document, string) {
	candidates := make([]Candidate, len(g.providers))

	var eg errgroup.Group
	for i, p := range g.providers {
		eg.Go(func() error {
			doc, err := p.Load(ctx)
			if err != nil {
				g.logger.WarnContext(ctx, "Provider load failed",
					log.FieldProvider, p.Name(),
					log.FieldError, err)
			}
			candidates[i] = Candidate{Source: p.Name(), Document: doc}
			return nil
		})
	}
	_ = eg.Wait()

	winner, ok := PriorityMerge(candidates)
	if !ok {
		g.logger.InfoContext(ctx, "No stored state found")
		return nil, ""
	}
	g.logger.InfoContext(ctx, "State loaded",
		log.FieldSource, winner.Source,
		log.FieldMonths, len(winner.Document.Months))

	if winner.Source != g.primary.Name() {
		if err := g.primary.Save(ctx, winner.Document); err != nil {
			g.logger.WarnContext(ctx, "Failed to store remote state locally",
				log.FieldSource, winner.Source,
				log.FieldError, err)
		}
	}
	return winner.Document, winner.Source
}

// Save writes doc to the local store synchronously and queues it for every
// mirror. Only local failures are returned, wrapped in ErrPersistence.
func (g *Gateway) Save(ctx context.Context, doc *state.Document) error {
	err := g.primary.Save(ctx, doc)

	g.mu.Lock()
	if !g.closed {
		for _, m := range g.mirrors {
			m.offer(doc)
		}
	}
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, g.primary.Name(), err)
	}
	return nil
}

// Close stops accepting mirror work, lets queued deliveries finish and
// waits for them or for ctx.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		for _, m := range g.mirrors {
			close(m.pending)
		}
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) deliver(m *mirror) {
	defer g.wg.Done()
	for doc := range m.pending {
		ctx, cancel := context.WithTimeout(context.Background(), g.mirrorTimeout)
		if err := m.saver.Save(ctx, doc); err != nil {
			g.logger.Warn("Mirror save failed",
				log.FieldMirror, m.name,
				log.FieldError, err)
		} else {
			g.logger.Debug("Mirror save completed", log.FieldMirror, m.name)
		}
		cancel()
	}
}

// mirror holds at most one pending document. A newer save replaces an
// undelivered older one, so a slow sink always converges on the latest
// state and deliveries never run out of order.
type mirror struct {
	name    string
	saver   Saver
	pending chan *state.Document
}

func newMirror(name string, s Saver) *mirror {
	return &mirror{name: name, saver: s, pending: make(chan *state.Document, 1)}
}

func (m *mirror) offer(doc *state.Document) {
	for {
		select {
		case m.pending <- doc:
			return
		default:
		}
		select {
		case <-m.pending:
		default:
		}
	}
}
