package reader

import (
	"context"
	"errors"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

// resource is one probed version of a path together with its decoder.
// res never changes; a refresh installs a new resource. active, retired and
// closed are guarded by Reader.mu.
type resource struct {
	res       *pipeline.MediaResource
	handle    ports.MediaHandle
	sem       chan struct{}
	checkedAt int64 // unix nanos of the last signature check

	active  int
	retired bool
	closed  bool
}

func newResource(res *pipeline.MediaResource, h ports.MediaHandle, now int64) *resource {
	return &resource{
		res:       res,
		handle:    h,
		sem:       make(chan struct{}, 1),
		checkedAt: now,
	}
}

// probeCall deduplicates concurrent probes of one path.
type probeCall struct {
	done chan struct{}
	err  error
}

// acquire returns the current resource for path, probing or re-probing it as
// needed, and registers the caller as an active reader. Callers must release.
func (r *Reader) acquire(ctx context.Context, path string, refresh int) (*resource, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, errClosed
		}
		if pc, ok := r.probing[path]; ok {
			r.mu.Unlock()
			select {
			case <-pc.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if pc.err != nil && !(isContextErr(pc.err) && ctx.Err() == nil) {
				return nil, pc.err
			}
			continue
		}

		e := r.resources[path]
		if e != nil && e.res.ID.Refresh == refresh && r.fresh(e) {
			e.active++
			r.mu.Unlock()
			return e, nil
		}
		pc := &probeCall{done: make(chan struct{})}
		r.probing[path] = pc
		r.mu.Unlock()

		next, err := r.revalidate(ctx, path, refresh, e)

		r.mu.Lock()
		delete(r.probing, path)
		if err == nil {
			if next != e {
				r.resources[path] = next
				if e != nil {
					r.retireLocked(e)
					r.cache.Invalidate(e.res.ID)
				}
			}
			next.checkedAt = r.now().UnixNano()
			next.active++
		} else if e != nil && errors.Is(err, pipeline.ErrNotFound) {
			// The file is gone; forget the old version too.
			delete(r.resources, path)
			r.retireLocked(e)
			r.cache.Invalidate(e.res.ID)
		}
		pc.err = err
		close(pc.done)
		r.mu.Unlock()
		return next, err
	}
}

// fresh reports whether e's signature was checked recently enough to skip a
// stat. A zero RevalidateAfter checks on every read.
func (r *Reader) fresh(e *resource) bool {
	if r.cfg.RevalidateAfter <= 0 {
		return false
	}
	return r.now().UnixNano()-e.checkedAt < int64(r.cfg.RevalidateAfter)
}

// revalidate keeps old when its signature and refresh count still hold and
// probes a new version otherwise.
func (r *Reader) revalidate(ctx context.Context, path string, refresh int, old *resource) (*resource, error) {
	if old != nil {
		if old.res.ID.Refresh != refresh {
			r.logger.Info("Refresh count of %s changed to %d", path, refresh)
		} else {
			sig, err := r.locator.Stat(ctx, path)
			if err != nil {
				return nil, probeFailure(path, err)
			}
			if sig == old.res.ID.Signature {
				return old, nil
			}
			r.logger.Info("Resource %s changed, re-probing", path)
		}
	}

	res, h, err := r.prober.Open(ctx, pipeline.ProbeInput{Path: path, RefreshCount: refresh})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Opening decoder for %s", path)
	return newResource(res, h, r.now().UnixNano()), nil
}

// release drops one active reader and closes a retired resource's decoder
// once nobody uses it.
func (r *Reader) release(e *resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.active--
	r.closeIfIdleLocked(e)
}

// retire detaches e from the registry so the next read re-probes.
func (r *Reader) retire(e *resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resources[e.res.ID.Path] == e {
		delete(r.resources, e.res.ID.Path)
	}
	r.retireLocked(e)
	r.cache.Invalidate(e.res.ID)
}

func (r *Reader) retireLocked(e *resource) {
	e.retired = true
	r.closeIfIdleLocked(e)
}

func (r *Reader) closeIfIdleLocked(e *resource) {
	if !e.retired || e.active > 0 || e.closed {
		return
	}
	e.closed = true
	r.logger.Debug("Closing decoder for %s", e.res.ID.Path)
	if err := e.handle.Close(); err != nil {
		r.logger.Warn("Failed to close decoder: %s", err)
	}
}

func probeFailure(path string, err error) error {
	var pe *pipeline.ProbeError
	if errors.As(err, &pe) {
		return err
	}
	kind := pipeline.ErrUnreadable
	if errors.Is(err, ports.ErrMediaNotFound) {
		kind = pipeline.ErrNotFound
	}
	return &pipeline.ProbeError{Kind: kind, Path: path, Err: err}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
