package types

import "math/big"

// Account holds the fungible balance tracked by the token ledger for a single
// address. Non-fungible ownership lives in the deed ledger and is keyed by
// item, not by account.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
