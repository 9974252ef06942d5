package auth

import (
	"maps"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// User is the profile of the logged-in user. A session replaces its User on
// every login, refresh and fetch; it never mutates one in place.
type User struct {
	ID        int64
	Email     string
	Username  string
	Wallet    api.WalletAddresses
	Addresses map[chain.Chain]string
}

// Address returns the user's address on c.
func (u User) Address(c chain.Chain) (string, bool) {
	addr, ok := u.Addresses[c]
	return addr, ok && addr != ""
}

func (u User) clone() User {
	u.Addresses = maps.Clone(u.Addresses)
	return u
}

func newUser(in api.User) User {
	w := in.Wallet
	if w.SolAddress == "" {
		w.SolAddress = in.SolAddress
	}

	addrs := make(map[chain.Chain]string)
	if w.SolAddress != "" {
		addrs[chain.Solana] = w.SolAddress
	}
	if w.EthAddress != "" {
		for _, c := range []chain.Chain{chain.Ethereum, chain.Polygon, chain.BNB} {
			addrs[c] = w.EthAddress
		}
	}
	if w.SuiAddress != "" {
		addrs[chain.Sui] = w.SuiAddress
	}

	return User{
		ID:        in.ID,
		Email:     in.Email,
		Username:  in.Username,
		Wallet:    w,
		Addresses: addrs,
	}
}
