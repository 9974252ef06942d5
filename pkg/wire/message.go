// Package wire defines the frames exchanged between the SDK and a wallet surface.
//
// A frame is a JSON object discriminated by its name:
//
//	{"v": 1, "name": "mw:action:approve", "surface": "<surface id>",
//	 "data": {"action": {"uuid": "..."}, "authorization_token": "..."}}
//
// Every inbound frame goes through Decode, which validates it against the
// schema for its name before unmarshalling the typed payload.
package wire

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the frame version produced by Encode.
const ProtocolVersion = 1

// Name discriminates a frame.
type Name string

const (
	// NameAuthLogin carries the tokens of a completed login.
	NameAuthLogin Name = "mw:auth:login"
	// NameAuthClose means the user dismissed the surface.
	NameAuthClose Name = "mw:auth:close"
	// NameActionApprove carries an approved action and its authorization token.
	NameActionApprove Name = "mw:action:approve"
	// NameActionCancel means the user denied the action.
	NameActionCancel Name = "mw:action:cancel"
	// NameClose instructs surface teardown. It only travels on the event bus.
	NameClose Name = "close"
)

func (n Name) String() string {
	return string(n)
}

// Message is a decoded frame. Payload holds one of *LoginPayload,
// *ApprovePayload, *CancelPayload, or nil for frames without data.
type Message struct {
	Version   int
	Name      Name
	SurfaceID string
	Payload   any
}

// Login returns the login payload, if m carries one.
func (m Message) Login() (*LoginPayload, bool) {
	p, ok := m.Payload.(*LoginPayload)
	return p, ok
}

// Approve returns the approval payload, if m carries one.
func (m Message) Approve() (*ApprovePayload, bool) {
	p, ok := m.Payload.(*ApprovePayload)
	return p, ok
}

// Cancel returns the cancellation payload, if m carries one.
func (m Message) Cancel() (*CancelPayload, bool) {
	p, ok := m.Payload.(*CancelPayload)
	return p, ok
}

// ActionUUID returns the uuid of the action an approve or cancel frame refers to.
func (m Message) ActionUUID() string {
	switch p := m.Payload.(type) {
	case *ApprovePayload:
		return p.Action.UUID
	case *CancelPayload:
		return p.Action.UUID
	}
	return ""
}

// LoginPayload is the data of a mw:auth:login frame.
type LoginPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ActionRef identifies the action an approval frame refers to. Fields other than
// UUID are informational copies of the server record.
type ActionRef struct {
	UUID   string          `json:"uuid"`
	Type   string          `json:"type,omitempty"`
	Status string          `json:"status,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ApprovePayload is the data of a mw:action:approve frame.
type ApprovePayload struct {
	Action             ActionRef `json:"action"`
	AuthorizationToken string    `json:"authorization_token"`
}

// CancelPayload is the optional data of a mw:action:cancel frame.
type CancelPayload struct {
	Action ActionRef `json:"action"`
}

type frame struct {
	Version   int             `json:"v,omitempty"`
	Name      Name            `json:"name"`
	SurfaceID string          `json:"surface,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Encode builds a frame. payload may be nil.
func Encode(name Name, surfaceID string, payload any) ([]byte, error) {
	f := frame{
		Version:   ProtocolVersion,
		Name:      name,
		SurfaceID: surfaceID,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		f.Data = data
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return raw, nil
}

// MustEncode is Encode for fixed payloads that cannot fail to marshal.
func MustEncode(name Name, surfaceID string, payload any) []byte {
	raw, err := Encode(name, surfaceID, payload)
	if err != nil {
		panic(err)
	}
	return raw
}
