package state

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"tradevault/core/types"
	"tradevault/native/deed"
	"tradevault/native/escrow"
	"tradevault/storage"
)

const (
	tradeKeyPrefix     = "escrow/trade/"
	tradeNextIndexKey  = "escrow/trades/next"
	mediatorKeyPrefix  = "escrow/mediator/"
	accountKeyPrefix   = "token/account/"
	allowanceKeyPrefix = "token/allowance/"
	deedKeyPrefix      = "deed/item/"
	pauseKeyPrefix     = "system/paused/"
)

// Manager persists every module's records in a single key-value database
// under prefixed keys. It implements the narrow state interfaces declared by
// the escrow engine and both ledgers.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func tradeKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", tradeKeyPrefix, index))
}

func mediatorKey(addr [20]byte) []byte {
	return []byte(mediatorKeyPrefix + hex.EncodeToString(addr[:]))
}

func accountKey(addr [20]byte) []byte {
	return []byte(accountKeyPrefix + hex.EncodeToString(addr[:]))
}

func allowanceKey(owner, spender [20]byte) []byte {
	return []byte(allowanceKeyPrefix + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:]))
}

func deedKey(assetID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", deedKeyPrefix, assetID))
}

// --- escrow engine state ---

// TradePut stores a sanitized copy of the trade record.
func (m *Manager) TradePut(t *escrow.Trade) error {
	sanitized, err := escrow.SanitizeTrade(t)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return err
	}
	return m.db.Put(tradeKey(sanitized.Index), raw)
}

// TradeAppend assigns the next monotonic index to the trade and stores it.
// The counter advances only after the record is durably stored, so a failed
// append leaves no gap: the same index is handed out again next time.
func (m *Manager) TradeAppend(t *escrow.Trade) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := m.tradeCounter()
	if err != nil {
		return 0, err
	}
	t.Index = next
	if err := m.TradePut(t); err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next+1)
	if err := m.db.Put([]byte(tradeNextIndexKey), buf); err != nil {
		return 0, err
	}
	return next, nil
}

// TradeGet loads the trade stored at the index.
func (m *Manager) TradeGet(index uint64) (*escrow.Trade, bool, error) {
	raw, err := m.db.Get(tradeKey(index))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var trade escrow.Trade
	if err := json.Unmarshal(raw, &trade); err != nil {
		return nil, false, err
	}
	return &trade, true, nil
}

// TradeCount returns the number of trades allocated so far.
func (m *Manager) TradeCount() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tradeCounter()
}

func (m *Manager) tradeCounter() (uint64, error) {
	raw, err := m.db.Get([]byte(tradeNextIndexKey))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed trade counter")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// MediatorPut adds the identity to the persisted registry.
func (m *Manager) MediatorPut(addr [20]byte) error {
	return m.db.Put(mediatorKey(addr), []byte{1})
}

// MediatorExists reports registry membership.
func (m *Manager) MediatorExists(addr [20]byte) (bool, error) {
	return m.db.Has(mediatorKey(addr))
}

// --- token ledger state ---

// TokenGetAccount loads the account record, returning a zeroed account when
// none exists yet.
func (m *Manager) TokenGetAccount(addr [20]byte) (*types.Account, error) {
	raw, err := m.db.Get(accountKey(addr))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return &types.Account{Balance: big.NewInt(0)}, nil
		}
		return nil, err
	}
	var account types.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, err
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return &account, nil
}

// TokenPutAccount stores the account record.
func (m *Manager) TokenPutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	raw, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), raw)
}

// TokenGetAllowance loads the remaining allowance for the owner/spender pair.
func (m *Manager) TokenGetAllowance(owner, spender [20]byte) (*big.Int, error) {
	raw, err := m.db.Get(allowanceKey(owner, spender))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	allowance, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: malformed allowance record")
	}
	return allowance, nil
}

// TokenPutAllowance stores the allowance for the owner/spender pair.
func (m *Manager) TokenPutAllowance(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: allowance must be non-negative")
	}
	return m.db.Put(allowanceKey(owner, spender), []byte(amount.String()))
}

// --- deed ledger state ---

// DeedGet loads the ownership record for the item.
func (m *Manager) DeedGet(assetID uint64) (*deed.Deed, bool, error) {
	raw, err := m.db.Get(deedKey(assetID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var record deed.Deed
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

// DeedPut stores the ownership record.
func (m *Manager) DeedPut(record *deed.Deed) error {
	if record == nil {
		return fmt.Errorf("state: nil deed")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return m.db.Put(deedKey(record.ID), raw)
}

// --- bootstrap state ---

const genesisAppliedKey = "system/genesis"

// GenesisApplied reports whether the one-time genesis bootstrap already ran
// against this database.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.db.Has([]byte(genesisAppliedKey))
}

// SetGenesisApplied marks the genesis bootstrap as done.
func (m *Manager) SetGenesisApplied() error {
	return m.db.Put([]byte(genesisAppliedKey), []byte{1})
}

// --- module pause state ---

// SetPaused toggles the pause flag for a module.
func (m *Manager) SetPaused(module string, paused bool) error {
	key := []byte(pauseKeyPrefix + module)
	if paused {
		return m.db.Put(key, []byte{1})
	}
	return m.db.Put(key, []byte{0})
}

// IsPaused implements common.PauseView over the persisted pause flags.
func (m *Manager) IsPaused(module string) bool {
	raw, err := m.db.Get([]byte(pauseKeyPrefix + module))
	if err != nil {
		return false
	}
	return len(raw) == 1 && raw[0] == 1
}
