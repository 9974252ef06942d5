package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// Solana groups the Solana operations.
type Solana struct {
	Asset    *SolanaAsset
	Wallet   *SolanaWallet
	Metadata *SolanaMetadata
}

func newSolana(d *Dispatcher) *Solana {
	return &Solana{
		Asset:    &SolanaAsset{d: d},
		Wallet:   &SolanaWallet{d: d},
		Metadata: &SolanaMetadata{d: d},
	}
}

func solanaOnly() chain.AllowList {
	return chain.AllNetworks(chain.Solana)
}

type SolanaAsset struct{ d *Dispatcher }

type SolanaMintNFTRequest struct {
	CollectionMint       string `json:"collection_mint" validate:"required,address=solana"`
	Name                 string `json:"name" validate:"required,max=32"`
	Symbol               string `json:"symbol" validate:"max=10"`
	URL                  string `json:"url" validate:"required,url"`
	SellerFeeBasisPoints int    `json:"seller_fee_basis_points" validate:"gte=0,lte=10000"`
	ToWalletAddress      string `json:"to_wallet_address,omitempty" validate:"omitempty,address=solana"`
	Confirmation         string `json:"confirmation,omitempty" validate:"omitempty,oneof=processed confirmed finalized"`
}

func (a *SolanaAsset) MintNFT(ctx context.Context, req SolanaMintNFTRequest) (TxResult, error) {
	var out TxResult
	op := post("solana.asset.mintNFT", api.Asset, "/mint/nft", solanaOnly(), approval.MintNFT)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

type SolanaTransferNFTRequest struct {
	MintAddress     string `json:"mint_address" validate:"required,address=solana"`
	ToWalletAddress string `json:"to_wallet_address" validate:"required,address=solana"`
}

func (a *SolanaAsset) TransferNFT(ctx context.Context, req SolanaTransferNFTRequest) (TxResult, error) {
	var out TxResult
	op := post("solana.asset.transferNFT", api.Asset, "/transfer-nft", solanaOnly(), approval.TransferNFT)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

// SolanaListingRequest lists, buys or cancels a listing at Price SOL.
type SolanaListingRequest struct {
	MintAddress  string          `json:"mint_address" validate:"required,address=solana"`
	Price        decimal.Decimal `json:"price" validate:"decimal_gt0"`
	AuctionHouse string          `json:"auction_house,omitempty" validate:"omitempty,address=solana"`
}

func (a *SolanaAsset) ListNFT(ctx context.Context, req SolanaListingRequest) (TxResult, error) {
	return a.listing(ctx, "solana.asset.listNFT", "/auction/list", approval.ListNFT, req)
}

func (a *SolanaAsset) CancelListing(ctx context.Context, req SolanaListingRequest) (TxResult, error) {
	return a.listing(ctx, "solana.asset.cancelListing", "/auction/cancel", approval.CancelListing, req)
}

func (a *SolanaAsset) BuyNFT(ctx context.Context, req SolanaListingRequest) (TxResult, error) {
	return a.listing(ctx, "solana.asset.buyNFT", "/auction/buy", approval.BuyNFT, req)
}

func (a *SolanaAsset) listing(ctx context.Context, name, path string, action approval.ActionType, req SolanaListingRequest) (TxResult, error) {
	var out TxResult
	op := post(name, api.Asset, path, solanaOnly(), action)
	err := a.d.Execute(ctx, op, Request{Body: &req, Value: req.Price}, &out)
	return out, err
}

type SolanaCreateCollectionRequest struct {
	Name   string `json:"name" validate:"required,max=32"`
	Symbol string `json:"symbol" validate:"required,max=10"`
	URL    string `json:"url" validate:"required,url"`
}

func (a *SolanaAsset) CreateCollection(ctx context.Context, req SolanaCreateCollectionRequest) (TxResult, error) {
	var out TxResult
	op := post("solana.asset.createCollection", api.Asset, "/mint/collection", solanaOnly(), approval.CreateCollection)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

type SolanaWallet struct{ d *Dispatcher }

func (w *SolanaWallet) Tokens(ctx context.Context) (Balance, error) {
	var out Balance
	err := w.d.Execute(ctx, get("solana.wallet.tokens", api.Wallet, "/tokens", solanaOnly()), Request{}, &out)
	return out, err
}

// Transactions lists the wallet history, newest first. before is the
// NextBefore cursor of the previous page, empty for the first page.
func (w *SolanaWallet) Transactions(ctx context.Context, limit int, before string) (Transactions, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != "" {
		q.Set("next_before", before)
	}

	var out Transactions
	err := w.d.Execute(ctx, get("solana.wallet.transactions", api.Wallet, "/transactions", solanaOnly()), Request{Query: q}, &out)
	return out, err
}

type TransferSOLRequest struct {
	ToPublicKey string          `json:"to_publickey" validate:"required,address=solana"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt0"`
}

func (w *SolanaWallet) TransferSOL(ctx context.Context, req TransferSOLRequest) (TxResult, error) {
	var out TxResult
	op := post("solana.wallet.transferSOL", api.Wallet, "/transfer-sol", solanaOnly(), approval.TransferSOL)
	err := w.d.Execute(ctx, op, Request{Body: &req, Value: req.Amount}, &out)
	return out, err
}

type TransferSPLTokenRequest struct {
	ToPublicKey string          `json:"to_publickey" validate:"required,address=solana"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	TokenMint   string          `json:"token_mint" validate:"required,address=solana"`
	Decimals    uint8           `json:"decimals" validate:"lte=18"`
}

func (w *SolanaWallet) TransferSPLToken(ctx context.Context, req TransferSPLTokenRequest) (TxResult, error) {
	var out TxResult
	op := post("solana.wallet.transferSPLToken", api.Wallet, "/transfer-token", solanaOnly(), approval.TransferSPLToken)
	err := w.d.Execute(ctx, op, Request{Body: &req, Value: req.Amount}, &out)
	return out, err
}

type SolanaMetadata struct{ d *Dispatcher }

type CollectionsRequest struct {
	Collections []string `json:"collections" validate:"required,min=1,dive,address=solana"`
}

func (m *SolanaMetadata) Collections(ctx context.Context, req CollectionsRequest) ([]NFT, error) {
	var out []NFT
	op := post("solana.metadata.collections", api.Metadata, "/collections", solanaOnly(), "")
	err := m.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

func (m *SolanaMetadata) NFT(ctx context.Context, mint string) (NFT, error) {
	op := get("solana.metadata.nft", api.Metadata, "/nft/"+url.PathEscape(mint), solanaOnly())
	if err := m.d.gate(op, m.d.Config()); err != nil {
		return NFT{}, err
	}
	if err := chain.ValidateAddress(chain.Solana, mint); err != nil {
		return NFT{}, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, op.Name, err)
	}

	var out NFT
	err := m.d.Execute(ctx, op, Request{}, &out)
	return out, err
}
