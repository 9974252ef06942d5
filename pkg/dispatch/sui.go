package dispatch

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// Sui groups the Sui operations.
type Sui struct {
	Asset  *SuiAsset
	Wallet *SuiWallet
}

func newSui(d *Dispatcher) *Sui {
	return &Sui{
		Asset:  &SuiAsset{d: d},
		Wallet: &SuiWallet{d: d},
	}
}

func suiOnly() chain.AllowList {
	return chain.AllNetworks(chain.Sui)
}

type SuiAsset struct{ d *Dispatcher }

type SuiMintNFTRequest struct {
	CollectionAddress string `json:"collection_address" validate:"required,address=sui"`
	Name              string `json:"name" validate:"required"`
	Description       string `json:"description"`
	ImageURL          string `json:"image_url" validate:"required,url"`
	ToWalletAddress   string `json:"to_wallet_address,omitempty" validate:"omitempty,address=sui"`
}

func (a *SuiAsset) MintNFT(ctx context.Context, req SuiMintNFTRequest) (TxResult, error) {
	var out TxResult
	op := post("sui.asset.mintNFT", api.Asset, "/mint/nft", suiOnly(), approval.MintNFT)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

type SuiWallet struct{ d *Dispatcher }

func (w *SuiWallet) Tokens(ctx context.Context) (Balance, error) {
	var out Balance
	err := w.d.Execute(ctx, get("sui.wallet.tokens", api.Wallet, "/tokens", suiOnly()), Request{}, &out)
	return out, err
}

type TransferSUIRequest struct {
	ToPublicKey string          `json:"to_publickey" validate:"required,address=sui"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt0"`
}

func (w *SuiWallet) TransferSUI(ctx context.Context, req TransferSUIRequest) (TxResult, error) {
	var out TxResult
	op := post("sui.wallet.transferSUI", api.Wallet, "/transfer-sui", suiOnly(), approval.TransferSUI)
	err := w.d.Execute(ctx, op, Request{Body: &req, Value: req.Amount}, &out)
	return out, err
}
