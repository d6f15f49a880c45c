package asset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Cleaner removes superseded or released objects from the remote store on a
// best-effort basis. Failures are logged and counted, never returned to the
// request that triggered them.
type Cleaner struct {
	store   Store
	log     *slog.Logger
	limiter *rate.Limiter
	timeout time.Duration
	wg      sync.WaitGroup
}

type CleanerOption func(*Cleaner)

// WithDeleteRate caps remote deletes per second across all requests.
// Zero or less disables the cap.
func WithDeleteRate(perSec int) CleanerOption {
	return func(c *Cleaner) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
}

func WithDeleteTimeout(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCleaner(store Store, log *slog.Logger, opts ...CleanerOption) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	c := &Cleaner{
		store:   store,
		log:     log.With(slog.String("component", "asset-cleaner")),
		limiter: rate.NewLimiter(rate.Inf, 0),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Release deletes refs in the background. The caller's cancellation does
// not stop the deletes once issued.
func (c *Cleaner) Release(ctx context.Context, refs ...Reference) {
	refs = complete(refs)
	if len(refs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.wg.Go(func() {
		c.Purge(ctx, refs...)
	})
}

// Purge deletes every reference independently and returns how many failed.
func (c *Cleaner) Purge(ctx context.Context, refs ...Reference) int {
	return c.purge(ctx, "asset.Purge", complete(refs))
}

// PurgeObjects deletes listed objects that no reference points at and
// returns how many failed.
func (c *Cleaner) PurgeObjects(ctx context.Context, objs ...RemoteObject) int {
	refs := make([]Reference, 0, len(objs))
	for _, o := range objs {
		if o.RemoteID != "" {
			refs = append(refs, Reference{RemoteID: o.RemoteID, Kind: KindFromExtension(o.RemoteID)})
		}
	}
	return c.purge(ctx, "asset.PurgeObjects", refs)
}

func (c *Cleaner) purge(ctx context.Context, spanName string, refs []Reference) int {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	failed := 0
	for _, ref := range Distinct(refs) {
		if err := c.delete(ctx, ref); err != nil {
			failed++
			meters().deleteFailures.Add(ctx, 1)
			c.log.WarnContext(ctx, "remote_delete_failed",
				slog.String("remote_id", ref.RemoteID),
				slog.String("kind", string(ref.Kind)),
				slog.String("err", err.Error()),
			)
			continue
		}
		c.log.DebugContext(ctx, "remote_delete", slog.String("remote_id", ref.RemoteID))
	}
	span.SetAttributes(
		attribute.Int("asset.deletes", len(refs)),
		attribute.Int("asset.delete_failures", failed),
	)
	return failed
}

func (c *Cleaner) delete(ctx context.Context, ref Reference) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	meters().deletes.Add(ctx, 1)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.store.Delete(ctx, ref.RemoteID, ref.Kind)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Wait blocks until every background release has finished.
func (c *Cleaner) Wait() {
	c.wg.Wait()
}

func complete(refs []Reference) []Reference {
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}
