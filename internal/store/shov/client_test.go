package shov

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_Add(t *testing.T) {
	tests := []struct {
		name     string
		handler  func(t *testing.T, w http.ResponseWriter, r *http.Request)
		want     map[string]any
		wantKind failure.Kind
		wantErr  bool
	}{
		{
			name: "success",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/add/wandrr", r.URL.Path)
				assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

				var body addRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "users", body.Collection)

				writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": "rec-1"})
			},
			want: map[string]any{"success": true, "id": "rec-1"},
		},
		{
			name: "rate limited status",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "slow down"})
			},
			wantErr:  true,
			wantKind: failure.RateLimited,
		},
		{
			name: "capacity message on a 500",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Capacity temporarily exceeded (3040)"})
			},
			wantErr:  true,
			wantKind: failure.RateLimited,
		},
		{
			name: "gateway status without a body is transient",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr:  true,
			wantKind: failure.TransientStoreError,
		},
		{
			name: "gateway status with an unknown message is unclassified",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadGateway, map[string]any{"error": "bad gateway"})
			},
			wantErr:  true,
			wantKind: failure.Unclassified,
		},
		{
			name: "internal error with an unknown message is unclassified",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Invalid filter"})
			},
			wantErr:  true,
			wantKind: failure.Unclassified,
		},
		{
			name: "unauthorized is unclassified",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid api key"})
			},
			wantErr:  true,
			wantKind: failure.Unclassified,
		},
		{
			name: "success false with store error",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "D1_ERROR: unknown internal error"})
			},
			wantErr:  true,
			wantKind: failure.TransientStoreError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.handler(t, w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "wandrr", "key", time.Second)
			defer func() { _ = client.Close() }()

			got, err := client.Add(context.Background(), "users", map[string]any{"id": "user-1"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, failure.Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Find(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/where/wandrr", r.URL.Path)
		var body whereRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "users", body.Collection)

		if body.Filter == nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		assert.Equal(t, "a@example.com", body.Filter["email"])
		assert.Equal(t, 1, body.Limit)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"items": []map[string]any{
				{"id": "rec-1", "value": map[string]any{"id": "user-1", "email": "a@example.com"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "wandrr", "key", time.Second)
	ctx := context.Background()

	records, err := client.Find(ctx, "users", map[string]any{"email": "a@example.com"}, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.True(t, store.Matches(records[0], map[string]any{"id": "user-1"}))

	all, err := client.Find(ctx, "users", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClient_Find_ServerErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      map[string]any
		wantKind  failure.Kind
		wantLogin degrade.State
	}{
		{
			name:      "invalid filter never falls back",
			status:    http.StatusInternalServerError,
			body:      map[string]any{"success": false, "error": "Invalid filter: malformed credentials"},
			wantKind:  failure.Unclassified,
			wantLogin: degrade.FailedHard,
		},
		{
			name:      "known transient message falls back",
			status:    http.StatusInternalServerError,
			body:      map[string]any{"success": false, "error": "D1_ERROR 9002"},
			wantKind:  failure.TransientStoreError,
			wantLogin: degrade.DegradedLocal,
		},
		{
			name:      "gateway timeout without a body falls back",
			status:    http.StatusGatewayTimeout,
			wantKind:  failure.TransientStoreError,
			wantLogin: degrade.DegradedLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, "wandrr", "key", time.Second)
			_, err := client.Find(context.Background(), "users", map[string]any{"email": "a@example.com"}, 1)
			require.Error(t, err)
			kind := failure.Classify(err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantLogin, degrade.Decide(degrade.OpLogin, kind))
		})
	}
}

func TestClient_Update(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/update/wandrr", r.URL.Path)
		var body updateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.ID == "rec-1" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Search service is temporarily unavailable"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "wandrr", "key", time.Second)
	ctx := context.Background()

	require.NoError(t, client.Update(ctx, "users", "rec-1", map[string]any{"xp": 10}))
	err := client.Update(ctx, "users", "rec-2", map[string]any{"xp": 10})
	assert.Equal(t, failure.TransientStoreError, failure.Classify(err))
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "wandrr", "key", time.Second)
	_, err := client.Find(context.Background(), "users", nil, 0)
	require.Error(t, err)
	assert.Equal(t, failure.TransientStoreError, failure.Classify(err))
}
