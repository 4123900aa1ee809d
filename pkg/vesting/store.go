package vesting

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema for sale state.
const (
	prefixRecord    = "rec:"
	prefixWhitelist = "wl:"
	keySold         = "meta:sold"
	keyIGO          = "meta:igo"
)

func recordKey(addr common.Address) []byte {
	return []byte(prefixRecord + addr.Hex())
}

func whitelistKey(addr common.Address) []byte {
	return []byte(prefixWhitelist + addr.Hex())
}

func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// Store provides Pebble-based persistence for per-buyer purchase records,
// the whitelist, the global sold counter, and the launch instant. Thread
// safety comes from the sale's mutex.
type Store struct {
	db *pebble.DB
}

func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(16 << 20),
		MemTableSize: 8 << 20,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRecord persists a buyer's purchase record and the global sold counter
// atomically: the two always move together.
func (s *Store) SaveRecord(addr common.Address, rec *Record, sold *big.Int) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(recordKey(addr), data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(keySold), []byte(sold.String()), nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save record for %s: %w", addr.Hex(), err)
	}
	return nil
}

// LoadRecords returns all purchase records keyed by buyer.
func (s *Store) LoadRecords() (map[common.Address]*Record, error) {
	prefix := []byte(prefixRecord)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record iterator: %w", err)
	}
	defer iter.Close()

	records := make(map[common.Address]*Record)
	for iter.First(); iter.Valid(); iter.Next() {
		addrHex := string(iter.Key()[len(prefixRecord):])
		if !common.IsHexAddress(addrHex) {
			continue
		}
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		records[common.HexToAddress(addrHex)] = &rec
	}
	return records, nil
}

// LoadSold returns the persisted global sold counter, zero for a fresh store.
func (s *Store) LoadSold() (*big.Int, error) {
	data, closer, err := s.db.Get([]byte(keySold))
	if err == pebble.ErrNotFound {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sold counter: %w", err)
	}
	defer closer.Close()

	sold, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("corrupt sold counter: %q", data)
	}
	return sold, nil
}

// SaveIGO persists the launch instant.
func (s *Store) SaveIGO(t time.Time) error {
	if err := s.db.Set([]byte(keyIGO), []byte(t.UTC().Format(time.RFC3339Nano)), pebble.Sync); err != nil {
		return fmt.Errorf("failed to save launch instant: %w", err)
	}
	return nil
}

// LoadIGO returns the persisted launch instant; ok is false when unset.
func (s *Store) LoadIGO() (time.Time, bool, error) {
	data, closer, err := s.db.Get([]byte(keyIGO))
	if err == pebble.ErrNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get launch instant: %w", err)
	}
	defer closer.Close()

	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt launch instant: %w", err)
	}
	return t, true, nil
}

// SaveWhitelisted persists a whitelist entry (or its removal).
func (s *Store) SaveWhitelisted(addr common.Address, approved bool) error {
	if !approved {
		if err := s.db.Delete(whitelistKey(addr), pebble.Sync); err != nil {
			return fmt.Errorf("failed to remove whitelist entry: %w", err)
		}
		return nil
	}
	if err := s.db.Set(whitelistKey(addr), []byte{1}, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save whitelist entry: %w", err)
	}
	return nil
}

// LoadWhitelist returns all whitelisted buyers.
func (s *Store) LoadWhitelist() (map[common.Address]bool, error) {
	prefix := []byte(prefixWhitelist)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open whitelist iterator: %w", err)
	}
	defer iter.Close()

	whitelist := make(map[common.Address]bool)
	for iter.First(); iter.Valid(); iter.Next() {
		addrHex := string(iter.Key()[len(prefixWhitelist):])
		if !common.IsHexAddress(addrHex) {
			continue
		}
		whitelist[common.HexToAddress(addrHex)] = true
	}
	return whitelist, nil
}
