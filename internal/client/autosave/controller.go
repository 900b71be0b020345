package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/auth"
	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/remote"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/dmitrijs2005/cardsync/internal/debounce"
	"github.com/dmitrijs2005/cardsync/internal/logging"
	"github.com/dmitrijs2005/cardsync/internal/metrics"
)

// LocalStore is the fail-soft card API the controller saves through.
// services.DataService satisfies it.
type LocalStore interface {
	SaveCard(ctx context.Context, card models.CardRecord) (string, bool)
	GetCard(ctx context.Context, id string) (models.CardRecord, bool)
	GetAllCards(ctx context.Context) []models.CardRecord
	DeleteCard(ctx context.Context, id string) bool
}

// CreatorSource hands out the creator id for cards made while signed out.
type CreatorSource interface {
	Get(ctx context.Context) (string, error)
}

// Notifier receives non-fatal failures meant for the user.
type Notifier func(cardID string, err error)

type Config struct {
	LocalSaveDelay  time.Duration
	RemoteSyncDelay time.Duration
	SyncTimeout     time.Duration
	// RetryInterval re-arms sync for editors stuck in SyncFailed. Zero
	// disables the sweep.
	RetryInterval time.Duration
}

var ErrEditorClosed = errors.New("editor closed")

type Controller struct {
	local     LocalStore
	remote    remote.Remote
	auth      auth.Provider
	anonymous CreatorSource
	cfg       Config
	logger    logging.Logger
	notify    Notifier
	now       func() time.Time

	timers *debounce.Debouncer
	ctx    context.Context
	cancel context.CancelFunc
	seq    atomic.Uint64
	wg     sync.WaitGroup

	mu      sync.Mutex
	editors map[*Editor]struct{}
	// syncing holds the in-flight slot per card id; the channel is closed
	// when the slot is released.
	syncing map[string]chan struct{}
	closed  bool
}

type Option func(*Controller)

// WithRemote enables remote sync. Without it the controller is local-only.
func WithRemote(r remote.Remote) Option {
	return func(c *Controller) { c.remote = r }
}

func WithAuth(p auth.Provider) Option {
	return func(c *Controller) { c.auth = p }
}

// WithAnonymousCreator stamps new cards made while signed out.
func WithAnonymousCreator(src CreatorSource) Option {
	return func(c *Controller) { c.anonymous = src }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(local LocalStore, cfg Config, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		local:   local,
		auth:    auth.Anonymous{},
		cfg:     cfg,
		logger:  logging.NewDiscardLogger(),
		notify:  func(string, error) {},
		now:     time.Now,
		timers:  debounce.New(),
		ctx:     ctx,
		cancel:  cancel,
		editors: make(map[*Editor]struct{}),
		syncing: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "autosave")

	if cfg.RetryInterval > 0 {
		c.wg.Add(1)
		go c.retryLoop(cfg.RetryInterval)
	}
	return c
}

// Open starts tracking card. onID, if not nil, is called once when a card
// without an id gets one from its first local save.
func (c *Controller) Open(card models.CardRecord, onID func(id string)) *Editor {
	n := c.seq.Add(1)
	e := &Editor{
		c:         c,
		card:      card.Clone(),
		onID:      onID,
		localKey:  fmt.Sprintf("local/%d", n),
		remoteKey: fmt.Sprintf("remote/%d", n),
	}

	c.mu.Lock()
	c.editors[e] = struct{}{}
	c.mu.Unlock()
	return e
}

// DeleteCard drops id from the local store and, when signed in, from the
// remote. Open editors of the card are discarded without saving. A sync of
// the card that is already running finishes first, so it cannot re-create
// the remote row after the delete.
func (c *Controller) DeleteCard(ctx context.Context, id string) error {
	for _, e := range c.openEditors() {
		if e.ID() == id {
			e.discard()
		}
	}

	if err := c.waitSync(ctx, id); err != nil {
		return err
	}
	defer c.endSync(id)

	if !c.local.DeleteCard(ctx, id) {
		c.logger.Debug(ctx, "card not deleted locally", "card_id", id)
	}

	userID, ok := c.remoteUser(ctx)
	if !ok {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, c.cfg.SyncTimeout)
	defer cancel()
	if err := c.remote.Delete(rctx, id, userID); err != nil {
		c.logger.Warn(ctx, "remote delete failed", "card_id", id, "error", err)
		return err
	}
	return nil
}

// AttachLocalCards runs after sign-in. Cards created anonymously are
// re-attributed to the signed-in user, saved locally, and pushed to the
// remote. It returns how many cards reached the remote.
func (c *Controller) AttachLocalCards(ctx context.Context) (int, error) {
	userID, ok := c.remoteUser(ctx)
	if !ok {
		return 0, common.ErrNotAuthenticated
	}

	var (
		synced int
		errs   []error
	)
	for _, card := range c.local.GetAllCards(ctx) {
		if owner := card.CreatorAttribution.CreatorID; owner == "" || auth.IsAnonymous(owner) {
			card.CreatorAttribution.CreatorID = userID
			if _, ok := c.local.SaveCard(ctx, card); !ok {
				errs = append(errs, fmt.Errorf("card %q: %w", card.ID, common.ErrStorageFault))
				continue
			}
		}
		if !c.beginSync(card.ID) {
			// an open editor is pushing it right now
			continue
		}
		err := c.push(ctx, card.ID, userID)
		c.endSync(card.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %q: %w", card.ID, err))
			continue
		}
		synced++
	}

	c.logger.Info(ctx, "local cards attached", "user_id", userID, "synced", synced, "failed", len(errs))
	return synced, errors.Join(errs...)
}

// Close flushes dirty editors, cancels every timer and aborts in-flight
// syncs.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, e := range c.openEditors() {
		if err := e.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.cancel()
	c.timers.Stop()
	c.wg.Wait()
	return errors.Join(errs...)
}

// openEditors snapshots the editor set. Editor locks must not be taken
// while holding c.mu.
func (c *Controller) openEditors() []*Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	editors := make([]*Editor, 0, len(c.editors))
	for e := range c.editors {
		editors = append(editors, e)
	}
	return editors
}

func (c *Controller) forget(e *Editor) {
	c.mu.Lock()
	delete(c.editors, e)
	c.mu.Unlock()
}

// remoteUser returns the signed-in user when remote sync is possible.
func (c *Controller) remoteUser(ctx context.Context) (string, bool) {
	if c.remote == nil {
		return "", false
	}
	userID, err := c.auth.CurrentUserID(ctx)
	if err != nil {
		return "", false
	}
	return userID, true
}

// beginSync claims the in-flight slot for id without waiting.
func (c *Controller) beginSync(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.syncing[id]; busy {
		return false
	}
	c.syncing[id] = make(chan struct{})
	return true
}

// waitSync claims the in-flight slot for id, waiting for the current holder
// to release it.
func (c *Controller) waitSync(ctx context.Context, id string) error {
	for {
		c.mu.Lock()
		released, busy := c.syncing[id]
		if !busy {
			c.syncing[id] = make(chan struct{})
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) endSync(id string) {
	c.mu.Lock()
	if released, ok := c.syncing[id]; ok {
		close(released)
		delete(c.syncing, id)
	}
	c.mu.Unlock()
}

// push uploads the durable copy of id. The caller must hold the in-flight
// slot for id.
func (c *Controller) push(ctx context.Context, id, userID string) error {
	card, ok := c.local.GetCard(ctx, id)
	if !ok {
		return fmt.Errorf("card %q: %w", id, common.ErrNotFound)
	}
	if err := card.Validate(); err != nil {
		metrics.ObserveSync(metrics.SyncRejected, time.Now())
		return fmt.Errorf("%w: %w", common.ErrRemoteRejected, err)
	}
	if auth.IsAnonymous(card.CreatorAttribution.CreatorID) {
		card.CreatorAttribution.CreatorID = userID
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SyncTimeout)
	defer cancel()

	start := time.Now()
	err := remote.Upsert(ctx, c.remote, remote.FromRecord(card, userID))
	metrics.ObserveSync(syncResult(err), start)
	return err
}

func syncResult(err error) string {
	switch {
	case err == nil:
		return metrics.SyncOK
	case remote.IsTimeout(err):
		return metrics.SyncTimeout
	case errors.Is(err, common.ErrRemoteRejected):
		return metrics.SyncRejected
	case errors.Is(err, common.ErrRemoteUnavailable):
		return metrics.SyncUnavailable
	default:
		return metrics.SyncFailed
	}
}

func (c *Controller) retryLoop(every time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, e := range c.openEditors() {
				e.retryFailedSync()
			}
		}
	}
}
