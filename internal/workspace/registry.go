package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Factory builds a controller wired to the collaborators of one user.
type Factory func(id auth.Identity) *Controller

// Registry keeps one controller per signed-in user and closes it after the
// idle TTL or once the user signs out.
type Registry struct {
	mu    sync.Mutex
	cache *cache.Cache
	build Factory
	loads singleflight.Group
}

func NewRegistry(idle time.Duration, build Factory) *Registry {
	cleanup := idle / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	c := cache.New(idle, cleanup)
	c.OnEvicted(func(userID string, v interface{}) {
		if ctrl, ok := v.(*Controller); ok {
			logger.Debugf("workspace for user=%s evicted", userID)
			go ctrl.Close()
		}
	})
	return &Registry{cache: c, build: build}
}

// Get returns the user's controller, building and loading it on first use.
// Every hit pushes the idle deadline out again. Loads run outside the
// registry lock, and concurrent first requests for one user share a load.
func (r *Registry) Get(ctx context.Context, id auth.Identity) *Controller {
	if ctrl, ok := r.lookup(id.UserID); ok {
		return ctrl
	}
	v, _, _ := r.loads.Do(id.UserID, func() (interface{}, error) {
		if ctrl, ok := r.lookup(id.UserID); ok {
			return ctrl, nil
		}
		ctrl := r.build(id)
		if err := ctrl.Load(ctx); err != nil {
			logger.Warnf("workspace load for user=%s: %v", id.UserID, err)
		}
		r.mu.Lock()
		r.cache.Set(id.UserID, ctrl, cache.DefaultExpiration)
		r.mu.Unlock()
		go r.watch(id.UserID, ctrl)
		return ctrl, nil
	})
	return v.(*Controller)
}

func (r *Registry) lookup(userID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache.Get(userID)
	if !ok {
		return nil, false
	}
	ctrl := v.(*Controller)
	if !ctrl.Identity().SignedIn() {
		r.cache.Delete(userID)
		return nil, false
	}
	r.cache.Set(userID, ctrl, cache.DefaultExpiration)
	return ctrl, true
}

// Drop closes and forgets the user's controller.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	r.cache.Delete(userID)
	r.mu.Unlock()
}

func (r *Registry) Len() int { return r.cache.ItemCount() }

func (r *Registry) watch(userID string, ctrl *Controller) {
	for {
		select {
		case id, ok := <-ctrl.auth.Changes():
			if !ok || !id.SignedIn() {
				r.mu.Lock()
				if v, found := r.cache.Get(userID); found && v.(*Controller) == ctrl {
					r.cache.Delete(userID)
				}
				r.mu.Unlock()
				return
			}
		case <-ctrl.Done():
			return
		}
	}
}
