// Package chain defines the blockchain/network pairs the SDK can target.
//
// A Config is an immutable value: switching chains replaces the Config held by
// the SDK rather than mutating it, and gating compares Configs by value.
package chain

import (
	"fmt"
	"sort"
	"strings"
)

// Chain identifies a supported blockchain.
type Chain string

const (
	Ethereum Chain = "ethereum"
	Solana   Chain = "solana"
	Polygon  Chain = "polygon"
	BNB      Chain = "bnb"
	Sui      Chain = "sui"
)

func (c Chain) String() string {
	return string(c)
}

// IsEVM reports whether the chain speaks the Ethereum virtual machine API.
func (c Chain) IsEVM() bool {
	switch c {
	case Ethereum, Polygon, BNB:
		return true
	}
	return false
}

// Network names a deployment of a chain, e.g. "mainnet-beta".
type Network string

func (n Network) String() string {
	return string(n)
}

// Networks per chain, as accepted by the remote API.
const (
	SolanaMainnet Network = "mainnet-beta"
	SolanaDevnet  Network = "devnet"

	EthereumMainnet Network = "mainnet"
	EthereumGoerli  Network = "goerli"
	EthereumSepolia Network = "sepolia"

	PolygonMainnet Network = "mumbai-mainnet"
	PolygonTestnet Network = "mumbai-testnet"

	BNBMainnet Network = "bnb-mainnet"
	BNBTestnet Network = "bnb-testnet"

	SuiMainnet Network = "mainnet"
	SuiTestnet Network = "testnet"
	SuiDevnet  Network = "devnet"
)

var networks = map[Chain][]Network{
	Solana:   {SolanaMainnet, SolanaDevnet},
	Ethereum: {EthereumMainnet, EthereumGoerli, EthereumSepolia},
	Polygon:  {PolygonMainnet, PolygonTestnet},
	BNB:      {BNBMainnet, BNBTestnet},
	Sui:      {SuiMainnet, SuiTestnet, SuiDevnet},
}

var mainnets = map[Config]bool{
	{Solana, SolanaMainnet}:     true,
	{Ethereum, EthereumMainnet}: true,
	{Polygon, PolygonMainnet}:   true,
	{BNB, BNBMainnet}:           true,
	{Sui, SuiMainnet}:           true,
}

// Chains returns every supported chain in a stable order.
func Chains() []Chain {
	out := make([]Chain, 0, len(networks))
	for c := range networks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Networks returns the networks allowed for c, or nil for an unknown chain.
func Networks(c Chain) []Network {
	allowed := networks[c]
	out := make([]Network, len(allowed))
	copy(out, allowed)
	return out
}

// Config is the active {chain, network} pair.
type Config struct {
	Chain   Chain   `json:"chain"`
	Network Network `json:"network"`
}

// NewConfig validates network against the allow-list of c.
func NewConfig(c Chain, network Network) (Config, error) {
	allowed, ok := networks[c]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedChain, c)
	}
	for _, n := range allowed {
		if n == network {
			return Config{Chain: c, Network: network}, nil
		}
	}
	return Config{}, fmt.Errorf("%w: %q is not one of [%s] for %s",
		ErrUnsupportedNetwork, network, joinNetworks(allowed), c)
}

// MustConfig is NewConfig that panics; intended for package-level allow-lists.
func MustConfig(c Chain, network Network) Config {
	cfg, err := NewConfig(c, network)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ParseConfig builds a Config from user-supplied strings, trimming and lower-casing them.
func ParseConfig(c, network string) (Config, error) {
	return NewConfig(
		Chain(strings.ToLower(strings.TrimSpace(c))),
		Network(strings.ToLower(strings.TrimSpace(network))),
	)
}

func (c Config) IsZero() bool {
	return c == Config{}
}

func (c Config) IsEVM() bool {
	return c.Chain.IsEVM()
}

func (c Config) IsMainnet() bool {
	return mainnets[c]
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s", c.Chain, c.Network)
}

func joinNetworks(ns []Network) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
