package escrow

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

const vaultSeed = "tradevault/escrow/vault"

// ModuleVaultAddress derives the deterministic custody address used by the
// escrow module. No key exists for it, so funds parked there can only move
// through engine transitions.
func ModuleVaultAddress() [20]byte {
	hash := ethcrypto.Keccak256([]byte(vaultSeed))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
