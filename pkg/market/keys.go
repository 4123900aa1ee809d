package market

import "fmt"

// Pebble key schema. Order ids are zero-padded so the prefix scan yields
// orders in creation sequence. Shield entries live under their own prefix:
// they were added after the base order layout and never touch it.
const (
	prefixOrder  = "ord:"
	prefixShield = "shl:"
	keyNextID    = "seq:order"
)

// orderKey returns the key for an order.
// Format: "ord:{id}" with the id zero-padded to 20 digits.
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

func orderPrefix() []byte {
	return []byte(prefixOrder)
}

// shieldKey returns the key for an order's shield entry.
func shieldKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixShield, id))
}

func shieldPrefix() []byte {
	return []byte(prefixShield)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
