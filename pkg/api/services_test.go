package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
)

// gock keeps global state, so these tests do not run in parallel.

const mockBase = "https://api.mock.mirrorworld"

func mockSet(t *testing.T) (*api.ServiceSet, *credential.Store) {
	t.Helper()
	t.Cleanup(gock.Off)

	set := api.NewServiceSet(api.Config{
		BaseURL:    mockBase,
		HTTPClient: &http.Client{Transport: gock.DefaultTransport},
	}, chain.MustConfig(chain.Solana, chain.SolanaDevnet))

	store := credential.NewStore("test-key")
	set.Each(func(c *api.Client) { store.Attach(c) })
	return set, store
}

func TestAuthService_RefreshToken(t *testing.T) {
	set, _ := mockSet(t)

	gock.New(mockBase).
		Get("/v2/auth/refresh-token").
		MatchHeader(api.HeaderRefreshToken, "^r1$").
		MatchHeader(credential.HeaderAPIKey, "^test-key$").
		Reply(200).
		JSON(map[string]any{
			"code":   0,
			"status": "success",
			"data": map[string]any{
				"access_token":  "a2",
				"refresh_token": "r2",
				"user":          map[string]any{"id": 1, "email": "u@x.io"},
			},
		})

	res, err := api.NewAuthService(set.Auth).RefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "a2", res.AccessToken)
	assert.Equal(t, "r2", res.RefreshToken)
	assert.Equal(t, "u@x.io", res.User.Email)
	assert.True(t, gock.IsDone())
}

func TestAuthService_MeAndLogout(t *testing.T) {
	set, store := mockSet(t)
	store.SetCredentials("bearer-1")

	gock.New(mockBase).
		Get("/v2/auth/me").
		MatchHeader(credential.HeaderAuthorization, "^Bearer bearer-1$").
		Reply(200).
		JSON(map[string]any{
			"code": 0,
			"data": map[string]any{
				"id":    9,
				"email": "me@x.io",
				"wallet": map[string]any{
					"eth_address": "0xabc",
					"sol_address": "So1",
				},
			},
		})
	gock.New(mockBase).
		Post("/v2/auth/logout").
		Reply(200).
		JSON(map[string]any{"code": 0})

	svc := api.NewAuthService(set.Auth)
	user, err := svc.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), user.ID)
	assert.Equal(t, "0xabc", user.Wallet.EthAddress)
	assert.Equal(t, "So1", user.Wallet.SolAddress)

	require.NoError(t, svc.Logout(context.Background()))
	assert.True(t, gock.IsDone())
}

func TestAuthService_LoginWithPassword(t *testing.T) {
	set, _ := mockSet(t)

	gock.New(mockBase).
		Post("/v2/auth/login").
		JSON(map[string]string{"email": "u@x.io", "password": "pw"}).
		Reply(200).
		JSON(map[string]any{
			"code": 0,
			"data": map[string]any{"access_token": "a", "refresh_token": "r"},
		})

	res, err := api.NewAuthService(set.Auth).LoginWithPassword(context.Background(), "u@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a", res.AccessToken)
}

func TestAuthService_Unauthorized(t *testing.T) {
	set, _ := mockSet(t)

	gock.New(mockBase).
		Get("/v2/auth/me").
		Reply(401).
		JSON(map[string]any{"code": 100001, "status": "failed", "message": "unauthorized"})

	_, err := api.NewAuthService(set.Auth).Me(context.Background())
	re, ok := api.IsRemote(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, re.HTTPStatus)
	assert.Equal(t, api.Auth, re.Service)
}

func TestActionService(t *testing.T) {
	set, _ := mockSet(t)

	gock.New(mockBase).
		Post("/v2/auth/actions/request").
		JSON(map[string]any{"type": "transfer_sol", "value": "1.5", "params": map[string]any{"to": "abc"}}).
		Reply(200).
		JSON(map[string]any{
			"code": 0,
			"data": map[string]any{
				"uuid":       "7b6f5e3c-4a3d-4a59-9a61-0d9f7d6c2b10",
				"type":       "transfer_sol",
				"value":      "1.5",
				"status":     "pending",
				"created_at": "2023-03-01T10:00:00Z",
			},
		})
	gock.New(mockBase).
		Get("/v2/auth/actions/7b6f5e3c-4a3d-4a59-9a61-0d9f7d6c2b10").
		Reply(200).
		JSON(map[string]any{
			"code": 0,
			"data": map[string]any{"uuid": "7b6f5e3c-4a3d-4a59-9a61-0d9f7d6c2b10", "status": "approved"},
		})

	svc := api.NewActionService(set.Auth)
	action, err := svc.RequestAction(context.Background(), api.ActionRequest{
		Type:   "transfer_sol",
		Value:  decimal.RequireFromString("1.5"),
		Params: map[string]any{"to": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7b6f5e3c-4a3d-4a59-9a61-0d9f7d6c2b10", action.UUID)
	assert.True(t, action.Value.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, 2023, action.CreatedAt.Year())

	got, err := svc.GetAction(context.Background(), action.UUID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)
	assert.True(t, gock.IsDone())

	_, err = svc.GetAction(context.Background(), "")
	assert.ErrorIs(t, err, api.ErrMissingActionID)
}

func TestActionService_MissingUUID(t *testing.T) {
	set, _ := mockSet(t)

	gock.New(mockBase).
		Post("/v2/auth/actions/request").
		Reply(200).
		JSON(map[string]any{"code": 0, "data": map[string]any{"status": "pending"}})

	_, err := api.NewActionService(set.Auth).RequestAction(context.Background(), api.ActionRequest{Type: "mint_nft"})
	assert.ErrorIs(t, err, api.ErrMissingActionID)
}
