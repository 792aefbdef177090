package usercache

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/user"
)

type recordFinder interface {
	FindByField(ctx context.Context, op degrade.Operation, collection, field string, value any) (*store.Record, error)
}

// GatewayFetcher reads users from the remote store through the degradation policy. The
// returned user keeps its password hash so a later full-record update does not drop it.
type GatewayFetcher struct {
	gateway recordFinder
}

func NewGatewayFetcher(gateway recordFinder) *GatewayFetcher {
	return &GatewayFetcher{gateway: gateway}
}

func (g *GatewayFetcher) FetchUser(ctx context.Context, userID string) (*user.User, error) {
	rec, err := g.gateway.FindByField(ctx, degrade.OpFetchUser, user.Collection, "id", userID)
	if err != nil {
		return nil, fmt.Errorf("gateway.FindByField() > %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	u, err := store.DecodeValue[user.User](*rec)
	if err != nil {
		return nil, err
	}
	u.ShovID = rec.ID
	return &u, nil
}
