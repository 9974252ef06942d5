package api

import (
	"context"
	"net/http"
)

// User is the profile returned by /auth/me.
type User struct {
	ID       int64           `json:"id"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Wallet   WalletAddresses `json:"wallet"`
	// SolAddress is set by older backends that predate Wallet.
	SolAddress string `json:"sol_address,omitempty"`
}

// WalletAddresses holds the per-chain addresses of a user.
type WalletAddresses struct {
	EthAddress string `json:"eth_address"`
	SolAddress string `json:"sol_address"`
	SuiAddress string `json:"sui_address"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type passwordLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService calls the auth endpoints.
type AuthService struct {
	c *Client
}

func NewAuthService(c *Client) *AuthService {
	return &AuthService{c: c}
}

// LoginWithPassword exchanges email credentials for a token pair.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (TokenResponse, error) {
	var out TokenResponse
	err := s.c.Do(ctx, http.MethodPost, "/login", passwordLogin{Email: email, Password: password}, &out)
	return out, err
}

// RefreshToken exchanges a refresh token for a new token pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var out TokenResponse
	err := s.c.Do(ctx, http.MethodGet, "/refresh-token", nil, &out, WithHeader(HeaderRefreshToken, refreshToken))
	return out, err
}

// Me fetches the profile of the bearer.
func (s *AuthService) Me(ctx context.Context) (User, error) {
	var out User
	err := s.c.Do(ctx, http.MethodGet, "/me", nil, &out)
	return out, err
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.c.Do(ctx, http.MethodPost, "/logout", nil, nil)
}
