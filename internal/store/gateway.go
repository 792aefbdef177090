// Package store is the gateway to the remote keyed-record store. Every call goes through the
// backoff retrier and the degradation policy; backends only translate wire errors into
// failure kinds.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/logger"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/store/mock_backend.go -package=mock_store

// Record is one stored item. ID is assigned by the store and differs from any id inside Value.
type Record struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Backend is a raw record store. Implementations return *failure.Error for store failures.
type Backend interface {
	Add(ctx context.Context, collection string, value any) (map[string]any, error)
	Update(ctx context.Context, collection, id string, value any) error
	// Find returns records whose value fields equal every filter entry. A nil filter
	// matches everything and limit <= 0 means no limit.
	Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]Record, error)
}

const (
	DefaultVerifyChecks   = 3
	DefaultVerifyInterval = 500 * time.Millisecond
)

type Gateway struct {
	backend        Backend
	policy         *degrade.Policy
	log            *logger.Logger
	verifyChecks   int
	verifyInterval time.Duration
}

func NewGateway(backend Backend, policy *degrade.Policy, log *logger.Logger, verifyChecks int, verifyInterval time.Duration) *Gateway {
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{
		backend:        backend,
		policy:         policy,
		log:            log.With("component", "gateway"),
		verifyChecks:   verifyChecks,
		verifyInterval: verifyInterval,
	}
}

// FindByField returns the first record whose field equals value, or nil when none matches.
func (g *Gateway) FindByField(ctx context.Context, op degrade.Operation, collection, field string, value any) (*Record, error) {
	records, err := degrade.Value(ctx, g.policy, op, collection+".find", func(ctx context.Context) ([]Record, error) {
		return g.backend.Find(ctx, collection, map[string]any{field: value}, 1)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (g *Gateway) FindAll(ctx context.Context, op degrade.Operation, collection string) ([]Record, error) {
	return degrade.Value(ctx, g.policy, op, collection+".findAll", func(ctx context.Context) ([]Record, error) {
		return g.backend.Find(ctx, collection, nil, 0)
	})
}

// Add stores value and returns the store-assigned id, or temp-<localID> when the store
// acknowledged the write without one.
func (g *Gateway) Add(ctx context.Context, op degrade.Operation, collection, localID string, value any) (string, error) {
	resp, err := degrade.Value(ctx, g.policy, op, collection+".add", func(ctx context.Context) (map[string]any, error) {
		return g.backend.Add(ctx, collection, value)
	})
	if err != nil {
		return "", err
	}
	id := AssignedID(resp, localID)
	g.log.Debug("record added", "collection", collection, "localId", localID, "assignedId", id)
	return id, nil
}

func (g *Gateway) Update(ctx context.Context, op degrade.Operation, collection, id string, value any) error {
	return g.policy.Run(ctx, op, collection+".update", func(ctx context.Context) error {
		return g.backend.Update(ctx, collection, id, value)
	})
}

// VerifyWrite re-checks a freshly written record a few times at a short fixed interval and
// then scans the whole collection, filtering client-side. It is best-effort: store errors
// are logged, and nil is returned when the record never shows up.
func (g *Gateway) VerifyWrite(ctx context.Context, collection, field string, value any) (*Record, error) {
	filter := map[string]any{field: value}
	for i := 0; i < g.verifyChecks; i++ {
		if err := sleep(ctx, g.verifyInterval); err != nil {
			return nil, err
		}
		records, err := g.backend.Find(ctx, collection, filter, 1)
		if err != nil {
			g.log.Warn("verify write check failed", "collection", collection, "check", i+1, "error", err)
			continue
		}
		if len(records) > 0 {
			return &records[0], nil
		}
	}

	records, err := g.backend.Find(ctx, collection, nil, 0)
	if err != nil {
		g.log.Warn("verify write scan failed", "collection", collection, "error", err)
		return nil, nil
	}
	for _, r := range records {
		if Matches(r, filter) {
			return &r, nil
		}
	}
	g.log.Warn("written record not visible yet", "collection", collection, "field", field)
	return nil, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// AssignedID extracts the store-assigned id from an add response. It looks at id, data.id
// and _id in that order and falls back to temp-<localID>.
func AssignedID(resp map[string]any, localID string) string {
	if id := stringField(resp, "id"); id != "" {
		return id
	}
	if data, ok := resp["data"].(map[string]any); ok {
		if id := stringField(data, "id"); id != "" {
			return id
		}
	}
	if id := stringField(resp, "_id"); id != "" {
		return id
	}
	return TempID(localID)
}

func TempID(localID string) string {
	return "temp-" + localID
}

func EmergencyID(localID string) string {
	return "emergency-" + localID
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

// Matches reports whether every filter entry equals the corresponding field of the record
// value. Values are compared by their printed form so numbers decoded from JSON match ints.
func Matches(r Record, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(r.Value))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return false
	}
	for k, want := range filter {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// DecodeValue unmarshals the record value into T.
func DecodeValue[T any](r Record) (T, error) {
	var v T
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return v, fmt.Errorf("json.Unmarshal(record %s) > %w", r.ID, err)
	}
	return v, nil
}
