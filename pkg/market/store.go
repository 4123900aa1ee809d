package market

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store provides Pebble-based persistence for the order book. Values are
// JSON; the next order id is kept under its own key so identity stays
// monotonic across restarts. Thread safety comes from the engine's mutex.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
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

// SaveOrder persists an order, its shield entry, and the next order id in a
// single atomic commit. The three always land together: a reload never sees
// an order whose execution restrictions are missing.
func (s *Store) SaveOrder(order *Order, entry *ShieldEntry, nextID uint64) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	shieldData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal shield entry: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(orderKey(order.ID), data, nil); err != nil {
		return err
	}
	if err := batch.Set(shieldKey(order.ID), shieldData, nil); err != nil {
		return err
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], nextID)
	if err := batch.Set([]byte(keyNextID), seq[:], nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.ID, err)
	}
	return nil
}

// DeleteOrder removes an order and its shield entry permanently, atomically.
func (s *Store) DeleteOrder(id uint64) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(orderKey(id), nil); err != nil {
		return err
	}
	if err := batch.Delete(shieldKey(id), nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	return nil
}

// LoadOrders returns all live orders.
func (s *Store) LoadOrders() ([]*Order, error) {
	prefix := orderPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open order iterator: %w", err)
	}
	defer iter.Close()

	var orders []*Order
	for iter.First(); iter.Valid(); iter.Next() {
		var order Order
		if err := json.Unmarshal(iter.Value(), &order); err != nil {
			continue // skip invalid entries
		}
		orders = append(orders, &order)
	}
	return orders, nil
}

// LoadShields returns the shield entries for all live orders, keyed by id.
func (s *Store) LoadShields() (map[uint64]*ShieldEntry, error) {
	prefix := shieldPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open shield iterator: %w", err)
	}
	defer iter.Close()

	entries := make(map[uint64]*ShieldEntry)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		var id uint64
		if _, err := fmt.Sscanf(string(key), prefixShield+"%d", &id); err != nil {
			continue
		}
		var entry ShieldEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		entries[id] = &entry
	}
	return entries, nil
}

// LoadNextID returns the persisted next order id, or 1 for a fresh store.
func (s *Store) LoadNextID() (uint64, error) {
	data, closer, err := s.db.Get([]byte(keyNextID))
	if err == pebble.ErrNotFound {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get next order id: %w", err)
	}
	defer closer.Close()
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt next order id: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
