package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Action is an action registered with the backend for user approval.
type Action struct {
	ID        int64           `json:"id,omitempty"`
	UUID      string          `json:"uuid"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActionRequest is the body of POST /auth/actions/request.
type ActionRequest struct {
	Type   string          `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Params any             `json:"params,omitempty"`
}

// ActionService registers and inspects actions. It rides on the auth client.
type ActionService struct {
	c *Client
}

func NewActionService(c *Client) *ActionService {
	return &ActionService{c: c}
}

func (s *ActionService) RequestAction(ctx context.Context, req ActionRequest) (Action, error) {
	var out Action
	if err := s.c.Do(ctx, http.MethodPost, "/actions/request", req, &out); err != nil {
		return Action{}, err
	}
	if out.UUID == "" {
		return Action{}, ErrMissingActionID
	}
	return out, nil
}

func (s *ActionService) GetAction(ctx context.Context, uuid string) (Action, error) {
	if uuid == "" {
		return Action{}, ErrMissingActionID
	}
	var out Action
	err := s.c.Do(ctx, http.MethodGet, fmt.Sprintf("/actions/%s", url.PathEscape(uuid)), nil, &out)
	return out, err
}
