package approval

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
)

// ActionType names an operation that needs user approval.
type ActionType string

const (
	MintNFT             ActionType = "mint_nft"
	UpdateNFT           ActionType = "update_nft"
	TransferSOL         ActionType = "transfer_sol"
	TransferSPLToken    ActionType = "transfer_spl_token"
	CreateCollection    ActionType = "create_collection"
	CreateSubCollection ActionType = "create_sub_collection"
	ListNFT             ActionType = "list_nft"
	BuyNFT              ActionType = "buy_nft"
	CancelListing       ActionType = "cancel_listing"
	UpdateListing       ActionType = "update_listing"
	TransferNFT         ActionType = "transfer_nft"
	Interaction         ActionType = "interaction"
	SignTransaction     ActionType = "sign_transaction"
	CreateMarketplace   ActionType = "create_marketplace"
	UpdateMarketplace   ActionType = "update_marketplace"

	TransferETH      ActionType = "transfer_eth"
	TransferERC20    ActionType = "transfer_erc20"
	TransferERC721   ActionType = "transfer_erc721"
	ApproveERC20     ActionType = "approve_erc20"
	TransferSUI      ActionType = "transfer_sui"
	TransferSUIToken ActionType = "transfer_sui_token"
)

var actionTypes = []ActionType{
	MintNFT, UpdateNFT, TransferSOL, TransferSPLToken, CreateCollection,
	CreateSubCollection, ListNFT, BuyNFT, CancelListing, UpdateListing,
	TransferNFT, Interaction, SignTransaction, CreateMarketplace, UpdateMarketplace,
	TransferETH, TransferERC20, TransferERC721, ApproveERC20,
	TransferSUI, TransferSUIToken,
}

// ActionTypes returns every recognized action type.
func ActionTypes() []ActionType {
	return append([]ActionType(nil), actionTypes...)
}

// Valid reports whether t is a recognized action type.
func (t ActionType) Valid() bool {
	for _, at := range actionTypes {
		if at == t {
			return true
		}
	}
	return false
}

func (t ActionType) String() string {
	return string(t)
}

// ActionRequest asks the user to approve one operation. Value is shown to the
// user and recorded for audit; it does not change the flow.
type ActionRequest struct {
	Type   ActionType      `json:"type" validate:"required,action_type"`
	Value  decimal.Decimal `json:"value" validate:"decimal_gte0"`
	Params map[string]any  `json:"params,omitempty"`
}

// PendingAction is the server record of an action awaiting a decision.
type PendingAction struct {
	UUID      string
	Type      ActionType
	Value     decimal.Decimal
	Params    json.RawMessage
	Status    string
	CreatedAt time.Time
}

func newPendingAction(a api.Action, now time.Time) PendingAction {
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}
	return PendingAction{
		UUID:      a.UUID,
		Type:      ActionType(a.Type),
		Value:     a.Value,
		Params:    a.Params,
		Status:    a.Status,
		CreatedAt: created,
	}
}

// Status is how an approval request ended without an error.
type Status string

const (
	// Approved carries an authorization token for exactly one call.
	Approved Status = "approved"
	// Bypassed means a secret key is installed and no token is needed.
	Bypassed Status = "bypassed"
	// Cancelled means the context ended before a decision arrived.
	Cancelled Status = "cancelled"
	// Unavailable means no wallet surface could be shown.
	Unavailable Status = "unavailable"
)

// Approval is the outcome of RequestApproval.
type Approval struct {
	Status             Status
	Action             PendingAction
	AuthorizationToken string
}

// Granted reports whether the caller may proceed with the operation.
func (a Approval) Granted() bool {
	return a.Status == Approved || a.Status == Bypassed
}
