// Package identity authenticates users against the remote store and falls back to local
// identities when the store is unavailable.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/at-ishikawa/wandrr/internal/auth"
	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/juju/clock"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user with this email already exists")
)

// RecordGateway is the subset of the store gateway the resolver needs.
type RecordGateway interface {
	FindByField(ctx context.Context, op degrade.Operation, collection, field string, value any) (*store.Record, error)
	Add(ctx context.Context, op degrade.Operation, collection, localID string, value any) (string, error)
	VerifyWrite(ctx context.Context, collection, field string, value any) (*store.Record, error)
}

type LoginResult struct {
	Token       string
	User        user.User
	IsLocalMode bool
}

type SignupResult struct {
	UserID string
	// Optimistic is set when the uniqueness check could not reach the store and the
	// account was reported as created without being written.
	Optimistic bool
}

type Options struct {
	BcryptCost int
	// SignupSettle is the pause between the signup write and its read-back.
	SignupSettle time.Duration
}

type Resolver struct {
	gateway  RecordGateway
	issuer   *auth.Issuer
	sessions degrade.SessionRegistry
	log      *logger.Logger
	opts     Options
	clock    clock.Clock
}

func NewResolver(gateway RecordGateway, issuer *auth.Issuer, sessions degrade.SessionRegistry, log *logger.Logger, opts Options) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{
		gateway:  gateway,
		issuer:   issuer,
		sessions: sessions,
		log:      log.With("component", "identity"),
		opts:     opts,
		clock:    clock.WallClock,
	}
}

func (r *Resolver) Login(ctx context.Context, email, password string) (LoginResult, error) {
	rec, err := r.gateway.FindByField(ctx, degrade.OpLogin, user.Collection, "email", email)
	if err != nil {
		if degrade.ShouldDegrade(err) {
			r.log.Warn("store unavailable, switching session to local mode", "email", email, "error", err)
			return r.localLogin(ctx, email)
		}
		return LoginResult{}, fmt.Errorf("gateway.FindByField() > %w", err)
	}
	if rec == nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := store.DecodeValue[user.User](*rec)
	if err != nil {
		return LoginResult{}, err
	}
	if u.HashedPassword == "" || !auth.CheckPassword(u.HashedPassword, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	u.ShovID = rec.ID

	token, err := r.issuer.IssueRemote(u.ID, u.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issuer.IssueRemote() > %w", err)
	}
	r.log.Info("login succeeded", "userId", u.ID)
	return LoginResult{Token: token, User: u.Public()}, nil
}

// localLogin reuses the local identity already minted for email when the registry knows
// one, otherwise mints a new one.
func (r *Resolver) localLogin(ctx context.Context, email string) (LoginResult, error) {
	now := r.clock.Now()
	localID, ok, err := r.sessions.LocalID(ctx, email)
	if err != nil {
		r.log.Warn("session registry lookup failed", "error", err)
		ok = false
	}
	if !ok {
		localID = user.NewLocalID(now)
		if err := r.sessions.SetLocalID(ctx, email, localID); err != nil {
			r.log.Warn("session registry write failed", "error", err)
		}
	}

	token, err := r.issuer.IssueLocal(localID, email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issuer.IssueLocal() > %w", err)
	}
	r.log.Info("local login issued", "userId", localID)
	return LoginResult{
		Token:       token,
		User:        user.NewLocal(localID, email, now),
		IsLocalMode: true,
	}, nil
}

func (r *Resolver) Signup(ctx context.Context, email, password string) (SignupResult, error) {
	existing, err := r.gateway.FindByField(ctx, degrade.OpSignup, user.Collection, "email", email)
	if err != nil {
		if degrade.OptimisticSignup(err) {
			pendingID := fmt.Sprintf("%spending-%d", user.LocalPrefix, r.clock.Now().UnixMilli())
			r.log.Warn("uniqueness check unavailable, reporting optimistic signup", "email", email, "pendingId", pendingID)
			return SignupResult{UserID: pendingID, Optimistic: true}, nil
		}
		return SignupResult{}, fmt.Errorf("gateway.FindByField() > %w", err)
	}
	if existing != nil {
		return SignupResult{}, ErrUserExists
	}

	hashed, err := auth.HashPassword(password, r.opts.BcryptCost)
	if err != nil {
		return SignupResult{}, err
	}
	newUser := user.NewRemote(email, hashed, r.clock.Now())

	storeID, err := r.gateway.Add(ctx, degrade.OpSignup, user.Collection, newUser.ID, newUser)
	if err != nil {
		return SignupResult{}, fmt.Errorf("gateway.Add() > %w", err)
	}
	r.log.Info("user created", "userId", newUser.ID, "storeId", storeID)

	r.verifySignup(ctx, email)
	return SignupResult{UserID: newUser.ID}, nil
}

func (r *Resolver) verifySignup(ctx context.Context, email string) {
	if err := sleep(ctx, r.opts.SignupSettle); err != nil {
		return
	}
	rec, err := r.gateway.VerifyWrite(ctx, user.Collection, "email", email)
	if err != nil {
		r.log.Warn("signup verification failed", "error", err)
		return
	}
	r.log.Debug("signup verification", "found", rec != nil)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
