package dispatch

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// EVM groups the operations shared by Ethereum, Polygon and BNB Chain.
type EVM struct {
	Asset  *EVMAsset
	Wallet *EVMWallet
}

func newEVM(d *Dispatcher) *EVM {
	return &EVM{
		Asset:  &EVMAsset{d: d},
		Wallet: &EVMWallet{d: d},
	}
}

type EVMAsset struct{ d *Dispatcher }

type EVMTransferNFTRequest struct {
	ContractAddress string `json:"nft_contract_address" validate:"required,evm_address"`
	TokenID         int64  `json:"token_id" validate:"gte=0"`
	ToWalletAddress string `json:"to_wallet_address" validate:"required,evm_address"`
}

func (a *EVMAsset) TransferNFT(ctx context.Context, req EVMTransferNFTRequest) (TxResult, error) {
	var out TxResult
	op := post("evm.asset.transferNFT", api.Asset, "/nft/transfer", chain.EVM(), approval.TransferERC721)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

type EVMMintNFTRequest struct {
	CollectionAddress string `json:"collection_address" validate:"required,evm_address"`
	TokenID           int64  `json:"token_id" validate:"gte=0"`
	URL               string `json:"url" validate:"required,url"`
	ToWalletAddress   string `json:"to_wallet_address,omitempty" validate:"omitempty,evm_address"`
}

func (a *EVMAsset) MintNFT(ctx context.Context, req EVMMintNFTRequest) (TxResult, error) {
	var out TxResult
	op := post("evm.asset.mintNFT", api.Asset, "/mint/nft", chain.EVM(), approval.MintNFT)
	err := a.d.Execute(ctx, op, Request{Body: &req}, &out)
	return out, err
}

type EVMWallet struct{ d *Dispatcher }

func (w *EVMWallet) Tokens(ctx context.Context) (Balance, error) {
	var out Balance
	err := w.d.Execute(ctx, get("evm.wallet.tokens", api.Wallet, "/tokens", chain.EVM()), Request{}, &out)
	return out, err
}

type TransferNativeRequest struct {
	ToWalletAddress string          `json:"to_wallet_address" validate:"required,evm_address"`
	Amount          decimal.Decimal `json:"amount" validate:"decimal_gt0"`
}

// TransferNative sends ETH, MATIC or BNB depending on the active chain.
func (w *EVMWallet) TransferNative(ctx context.Context, req TransferNativeRequest) (TxResult, error) {
	var out TxResult
	op := post("evm.wallet.transferNative", api.Wallet, "/transfer-eth", chain.EVM(), approval.TransferETH)
	err := w.d.Execute(ctx, op, Request{Body: &req, Value: req.Amount}, &out)
	return out, err
}

type TransferTokenRequest struct {
	ToWalletAddress string          `json:"to_wallet_address" validate:"required,evm_address"`
	Amount          decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	ContractAddress string          `json:"contract_address" validate:"required,evm_address"`
}

func (w *EVMWallet) TransferToken(ctx context.Context, req TransferTokenRequest) (TxResult, error) {
	var out TxResult
	op := post("evm.wallet.transferToken", api.Wallet, "/transfer-token", chain.EVM(), approval.TransferERC20)
	err := w.d.Execute(ctx, op, Request{Body: &req, Value: req.Amount}, &out)
	return out, err
}
