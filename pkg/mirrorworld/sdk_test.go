package mirrorworld_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/auth"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/credential"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/dispatch"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/event"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/mirrorworld"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/storage"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
)

const solAddr = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

type backend struct {
	mu    sync.Mutex
	auths map[string][]string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.auths == nil {
		b.auths = map[string][]string{}
	}
	b.auths[r.URL.Path] = r.Header.Values(credential.HeaderAuthorization)

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v2/auth/login":
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"AP","refresh_token":"RP","user":{"id":3,"email":"p@x.io"}}}`))
	case "/v2/auth/refresh-token":
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"AR","refresh_token":"RR","user":{"id":4}}}`))
	case "/v2/auth/logout":
		_, _ = w.Write([]byte(`{"code":0}`))
	case "/v2/solana/devnet/wallet/tokens", "/v2/ethereum/goerli/wallet/tokens":
		_, _ = w.Write([]byte(`{"code":0,"data":{"sol":"1","tokens":[]}}`))
	case "/v2/solana/devnet/wallet/transfer-sol":
		_, _ = w.Write([]byte(`{"code":0,"data":{"signature":"sig"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) authFor(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auths[path]
}

func (b *backend) called(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.auths[path]
	return ok
}

func newOptions(t *testing.T, b *backend) mirrorworld.Options {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return mirrorworld.Options{
		APIKey:     "key",
		Chain:      chain.Solana,
		Network:    chain.SolanaDevnet,
		APIBaseURL: srv.URL,
		Launcher:   surface.NewMemoryLauncher(),
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tcs := []struct {
		name string
		mod  func(*mirrorworld.Options)
	}{
		{name: "missing api key", mod: func(o *mirrorworld.Options) { o.APIKey = "" }},
		{name: "unknown chain", mod: func(o *mirrorworld.Options) { o.Chain = "doge" }},
		{name: "network not allowed for chain", mod: func(o *mirrorworld.Options) { o.Network = chain.EthereumGoerli }},
		{name: "unknown mode", mod: func(o *mirrorworld.Options) { o.Mode = "tab" }},
		{name: "bad base url", mod: func(o *mirrorworld.Options) { o.APIBaseURL = "::" }},
		{name: "token and secret", mod: func(o *mirrorworld.Options) {
			o.AccessToken = "A"
			o.SecretAccessKey = "S"
		}},
		{name: "bad auto login email", mod: func(o *mirrorworld.Options) {
			o.AutoLoginCredentials = &mirrorworld.Credentials{Email: "nope", Password: "p"}
		}},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := mirrorworld.Options{APIKey: "key", Chain: chain.Solana, Network: chain.SolanaDevnet}
			tc.mod(&opts)
			_, err := mirrorworld.New(ctx, opts)
			require.ErrorIs(t, err, mirrorworld.ErrInvalidOptions)
		})
	}
}

func TestNew_AccessToken(t *testing.T) {
	t.Parallel()
	b := &backend{}
	opts := newOptions(t, b)
	opts.AccessToken = "A"

	sdk, err := mirrorworld.New(context.Background(), opts)
	require.NoError(t, err)
	defer sdk.Close()

	assert.Equal(t, auth.Authenticated, sdk.Auth().State())
	_, err = sdk.Solana().Wallet.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer A"}, b.authFor("/v2/solana/devnet/wallet/tokens"))
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := &backend{}
	tokens := storage.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, credential.StorageKey("key"), "R0"))

	opts := newOptions(t, b)
	opts.TokenStore = tokens
	sdk, err := mirrorworld.New(ctx, opts)
	require.NoError(t, err)
	defer sdk.Close()

	assert.Equal(t, auth.Authenticated, sdk.Auth().State())
	assert.Equal(t, "RR", sdk.Auth().RefreshToken())
	stored, err := tokens.Get(ctx, credential.StorageKey("key"))
	require.NoError(t, err)
	assert.Equal(t, "RR", stored)
}

func TestNew_AutoLogin(t *testing.T) {
	t.Parallel()
	b := &backend{}
	opts := newOptions(t, b)
	opts.AutoLoginCredentials = &mirrorworld.Credentials{Email: "p@x.io", Password: "secret"}

	sdk, err := mirrorworld.New(context.Background(), opts)
	require.NoError(t, err)
	defer sdk.Close()

	require.Equal(t, auth.Authenticated, sdk.Auth().State())
	user, ok := sdk.Auth().User()
	require.True(t, ok)
	assert.Equal(t, "p@x.io", user.Email)
}

func TestSecretKeyBypassesApproval(t *testing.T) {
	t.Parallel()
	b := &backend{}
	opts := newOptions(t, b)
	launcher := surface.NewMemoryLauncher()
	opts.Launcher = launcher
	opts.SecretAccessKey = "S"

	sdk, err := mirrorworld.New(context.Background(), opts)
	require.NoError(t, err)
	defer sdk.Close()

	res, err := sdk.Solana().Wallet.TransferSOL(context.Background(), dispatch.TransferSOLRequest{
		ToPublicKey: solAddr,
		Amount:      decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sig", res.Signature)
	assert.Empty(t, launcher.Launched())
	assert.Equal(t, []string{"Bearer S"}, b.authFor("/v2/solana/devnet/wallet/transfer-sol"))
}

func TestSetChainConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := &backend{}
	opts := newOptions(t, b)
	opts.AccessToken = "A"

	sdk, err := mirrorworld.New(ctx, opts)
	require.NoError(t, err)
	defer sdk.Close()

	err = sdk.SetChainConfig(chain.Config{Chain: chain.Solana, Network: chain.EthereumGoerli})
	require.ErrorIs(t, err, mirrorworld.ErrInvalidOptions)
	assert.Equal(t, chain.MustConfig(chain.Solana, chain.SolanaDevnet), sdk.ChainConfig())

	require.NoError(t, sdk.SetChainConfig(chain.MustConfig(chain.Ethereum, chain.EthereumGoerli)))
	_, err = sdk.Solana().Wallet.Tokens(ctx)
	require.ErrorIs(t, err, dispatch.ErrMethodUnavailable)

	_, err = sdk.EVM().Wallet.Tokens(ctx)
	require.NoError(t, err)
	assert.True(t, b.called("/v2/ethereum/goerli/wallet/tokens"))
}

func TestInstancesAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := &backend{}

	first := newOptions(t, b)
	first.AccessToken = "A"
	one, err := mirrorworld.New(ctx, first)
	require.NoError(t, err)
	defer one.Close()

	two, err := mirrorworld.New(ctx, newOptions(t, b))
	require.NoError(t, err)
	defer two.Close()

	assert.Equal(t, auth.Authenticated, one.Auth().State())
	assert.Equal(t, auth.Uninitialized, two.Auth().State())
	require.NoError(t, one.Auth().Logout(ctx))
	assert.Equal(t, auth.LoggedOut, one.Auth().State())
	assert.Equal(t, auth.Uninitialized, two.Auth().State())
	assert.NotSame(t, one.Bus(), two.Bus())
}

func TestEventsAreForwarded(t *testing.T) {
	t.Parallel()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "sdk.events")
	require.NoError(t, err)

	b := &backend{}
	opts := newOptions(t, b)
	opts.Publisher = pubSub
	opts.EventsTopic = "sdk.events"
	opts.InstanceID = "inst-1"
	opts.Registerer = prometheus.NewRegistry()

	sdk, err := mirrorworld.New(ctx, opts)
	require.NoError(t, err)
	defer sdk.Close()

	_, err = sdk.Auth().LoginWithPassword(ctx, "p@x.io", "secret")
	require.NoError(t, err)

	var seen []string
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case msg := <-messages:
			msg.Ack()
			assert.Equal(t, "inst-1", msg.Metadata.Get(event.MetadataInstance))
			seen = append(seen, msg.Metadata.Get(event.MetadataEvent))
		case <-timeout:
			t.Fatalf("events not forwarded, got %v", seen)
		}
	}
	assert.Equal(t, []string{event.RefreshToken.String(), event.Login.String()}, seen)
}
