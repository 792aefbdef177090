// Package mysql is a record backend that keeps every collection in one MySQL table of JSON
// documents, for self-hosted deployments without the BaaS.
package mysql

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/store"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	errTooManyConnections = 1040
	errLockWaitTimeout    = 1205
	errDeadlock           = 1213
)

type Backend struct {
	db *sqlx.DB
}

func NewBackend(db *sqlx.DB) *Backend {
	return &Backend{db: db}
}

type recordRow struct {
	ID    string `db:"id"`
	Value []byte `db:"value"`
}

func (b *Backend) Add(ctx context.Context, collection string, value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal > %w", err)
	}
	id := uuid.NewString()
	if _, err := b.db.ExecContext(ctx,
		"INSERT INTO records (collection, id, value) VALUES (?, ?, ?)",
		collection, id, raw,
	); err != nil {
		return nil, classify(collection+".add", err)
	}
	return map[string]any{"success": true, "id": id}, nil
}

func (b *Backend) Update(ctx context.Context, collection, id string, value any) error {
	op := collection + ".update"
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}
	result, err := b.db.ExecContext(ctx,
		"UPDATE records SET value = ? WHERE collection = ? AND id = ?",
		raw, collection, id,
	)
	if err != nil {
		return classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if affected == 0 {
		return failure.New(failure.Unclassified, op, fmt.Errorf("record %s not found", id))
	}
	return nil
}

func (b *Backend) Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]store.Record, error) {
	query, args := buildFindQuery(collection, filter, limit)
	var rows []recordRow
	if err := b.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(collection+".find", err)
	}

	records := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, store.Record{ID: r.ID, Value: json.RawMessage(r.Value)})
	}
	return records, nil
}

func buildFindQuery(collection string, filter map[string]any, limit int) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT id, value FROM records WHERE collection = ?")
	args := []any{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" AND JSON_UNQUOTE(JSON_EXTRACT(value, ?)) = ?")
		args = append(args, "$."+k, fmt.Sprint(filter[k]))
	}

	sb.WriteString(" ORDER BY created_at")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return sb.String(), args
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errTooManyConnections:
			return failure.New(failure.RateLimited, op, err)
		case errLockWaitTimeout, errDeadlock:
			return failure.New(failure.TransientStoreError, op, err)
		}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gomysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return failure.New(failure.TransientStoreError, op, err)
	}

	classified := failure.FromMessage(op, err.Error())
	classified.Err = err
	return classified
}
