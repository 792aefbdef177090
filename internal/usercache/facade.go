package usercache

import (
	"context"
	"errors"
	"fmt"

	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/user"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=facade.go -destination=../mocks/usercache/mock_facade.go -package=mock_usercache

var ErrUserNotFound = errors.New("user not found")

// Fetcher loads a remote user. It returns nil without an error when the user does not exist.
type Fetcher interface {
	FetchUser(ctx context.Context, userID string) (*user.User, error)
}

// LocalUsers resolves local identities. EnsureUser creates the record with defaults when it
// is missing.
type LocalUsers interface {
	EnsureUser(ctx context.Context, userID, email string) user.User
}

// Facade reads users through the cache. Local ids never reach the fetcher and concurrent
// reads of the same remote id share one fetch.
type Facade struct {
	cache   *Cache
	fetcher Fetcher
	local   LocalUsers
	group   singleflight.Group
	log     *logger.Logger
}

// NewFacade builds a facade. local may be nil, in which case local ids resolve to a fresh
// default record on every read.
func NewFacade(cache *Cache, fetcher Fetcher, local LocalUsers, log *logger.Logger) *Facade {
	if log == nil {
		log = logger.NewNop()
	}
	return &Facade{
		cache:   cache,
		fetcher: fetcher,
		local:   local,
		log:     log.With("component", "usercache"),
	}
}

func (f *Facade) Cache() *Cache {
	return f.cache
}

// GetUser returns the user. useCache=false skips the cache read but still refreshes it.
func (f *Facade) GetUser(ctx context.Context, userID string, useCache bool) (user.User, error) {
	if user.IsLocalID(userID) {
		return f.localUser(ctx, userID), nil
	}
	if useCache {
		if u, ok := f.cache.GetUser(userID); ok {
			return u, nil
		}
	}

	// The shared fetch outlives any single caller; each caller only stops waiting for it.
	fetchCtx := context.WithoutCancel(ctx)
	results := f.group.DoChan(userID, func() (any, error) {
		u, err := f.fetcher.FetchUser(fetchCtx, userID)
		if err != nil {
			return nil, fmt.Errorf("fetcher.FetchUser() > %w", err)
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		f.cache.SetUser(*u)
		f.cache.SetStoreID(u.ID, u.ShovID)
		return *u, nil
	})

	select {
	case <-ctx.Done():
		return user.User{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return user.User{}, res.Err
		}
		if res.Shared {
			f.log.Debug("coalesced user fetch", "userId", userID)
		}
		return res.Val.(user.User), nil
	}
}

func (f *Facade) localUser(ctx context.Context, userID string) user.User {
	if f.local == nil {
		return user.NewLocal(userID, "", f.cache.clock.Now())
	}
	return f.local.EnsureUser(ctx, userID, "")
}

// StoreID returns the record id the remote store assigned to the user, from the cache when
// it is known.
func (f *Facade) StoreID(ctx context.Context, userID string) (string, error) {
	if id, ok := f.cache.GetStoreID(userID); ok {
		return id, nil
	}
	u, err := f.GetUser(ctx, userID, false)
	if err != nil {
		return "", err
	}
	if u.ShovID == "" {
		return "", ErrUserNotFound
	}
	return u.ShovID, nil
}

// Put replaces the cached copy after a successful write.
func (f *Facade) Put(u user.User) {
	if user.IsLocalID(u.ID) {
		return
	}
	f.cache.SetUser(u)
	f.cache.SetStoreID(u.ID, u.ShovID)
}

func (f *Facade) Invalidate(userID string) {
	f.cache.Invalidate(userID)
}
