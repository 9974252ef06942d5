package dispatch

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Token is a fungible balance held by a wallet.
type Token struct {
	Address  string          `json:"address,omitempty"`
	Mint     string          `json:"mint,omitempty"`
	Symbol   string          `json:"symbol,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Decimals int             `json:"decimals"`
}

// Balance is the result of a token listing.
type Balance struct {
	Native decimal.Decimal `json:"sol"`
	Tokens []Token         `json:"tokens"`
}

// Transactions is one page of a wallet's history.
type Transactions struct {
	Count        int               `json:"count"`
	NextBefore   string            `json:"next_before,omitempty"`
	Transactions []json.RawMessage `json:"transactions"`
}

// NFT is the metadata of one token.
type NFT struct {
	MintAddress          string          `json:"mint_address"`
	Name                 string          `json:"name"`
	Symbol               string          `json:"symbol,omitempty"`
	URL                  string          `json:"url,omitempty"`
	SellerFeeBasisPoints int             `json:"seller_fee_basis_points,omitempty"`
	UpdateAuthority      string          `json:"update_authority,omitempty"`
	Attributes           json.RawMessage `json:"attributes,omitempty"`
}

// TxResult is returned by operations that submit a transaction.
type TxResult struct {
	Signature   string `json:"signature,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	MintAddress string `json:"mint_address,omitempty"`
	Status      string `json:"status,omitempty"`
}
