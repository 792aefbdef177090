// Package shov is the record backend for the Shov BaaS HTTP API.
package shov

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/store"
	"resty.dev/v3"
)

const DefaultBaseURL = "https://shov.com/api"

type Client struct {
	httpClient *resty.Client
	project    string
}

func NewClient(baseURL, project, apiKey string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Client{httpClient: client, project: project}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

type addRequest struct {
	Collection string `json:"collection"`
	Value      any    `json:"value"`
}

type updateRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Value      any    `json:"value"`
}

type whereRequest struct {
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

type whereResponse struct {
	Success bool           `json:"success"`
	Items   []store.Record `json:"items"`
	Error   string         `json:"error,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (client *Client) Add(ctx context.Context, collection string, value any) (map[string]any, error) {
	op := collection + ".add"
	result := map[string]any{}
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetPathParam("project", client.project).
		SetBody(addRequest{Collection: collection, Value: value}).
		SetResult(&result).
		SetError(&errorResponse{}).
		Post("/add/{project}")
	if err != nil {
		return nil, transportError(op, err)
	}
	if response.IsError() {
		return nil, statusError(op, response)
	}
	if success, ok := result["success"].(bool); ok && !success {
		msg, _ := result["error"].(string)
		return nil, failure.FromMessage(op, msg)
	}
	return result, nil
}

func (client *Client) Update(ctx context.Context, collection, id string, value any) error {
	op := collection + ".update"
	result := errorResponse{Success: true}
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetPathParam("project", client.project).
		SetBody(updateRequest{Collection: collection, ID: id, Value: value}).
		SetResult(&result).
		SetError(&errorResponse{}).
		Post("/update/{project}")
	if err != nil {
		return transportError(op, err)
	}
	if response.IsError() {
		return statusError(op, response)
	}
	if !result.Success {
		return failure.FromMessage(op, result.text())
	}
	return nil
}

func (client *Client) Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]store.Record, error) {
	op := collection + ".find"
	result := whereResponse{Success: true}
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetPathParam("project", client.project).
		SetBody(whereRequest{Collection: collection, Filter: filter, Limit: limit}).
		SetResult(&result).
		SetError(&errorResponse{}).
		Post("/where/{project}")
	if err != nil {
		return nil, transportError(op, err)
	}
	if response.IsError() {
		return nil, statusError(op, response)
	}
	if !result.Success {
		return nil, failure.FromMessage(op, result.Error)
	}
	if result.Items == nil {
		return []store.Record{}, nil
	}
	return result.Items, nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return failure.New(failure.TransientStoreError, op, err)
	}
	classified := failure.FromMessage(op, err.Error())
	classified.Err = err
	return classified
}

// statusError classifies a non-2xx response by its message. Only a gateway status without an
// error body counts as transient on its own, since the store itself never answered.
func statusError(op string, response *resty.Response) error {
	msg := fmt.Sprintf("response error %d", response.StatusCode())
	hasBody := false
	if body, ok := response.Error().(*errorResponse); ok && body.text() != "" {
		msg = body.text()
		hasBody = true
	}

	classified := failure.FromMessage(op, msg)
	switch {
	case response.StatusCode() == http.StatusTooManyRequests:
		classified.Kind = failure.RateLimited
	case classified.Kind == failure.Unclassified && !hasBody && isGatewayStatus(response.StatusCode()):
		classified.Kind = failure.TransientStoreError
	}
	return classified
}

func isGatewayStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
