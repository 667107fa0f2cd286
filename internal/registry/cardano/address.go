package cardano

import (
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/gouroboros/ledger"
)

// ResolvePaymentKeyHash derives the seller verification key hash from a
// bech32 Cardano address. The hash is returned hex encoded.
func ResolvePaymentKeyHash(address string) (string, error) {
	addr, err := ledger.NewAddress(address)
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}
	keyHash := addr.PaymentKeyHash()
	if keyHash == ledger.NewBlake2b224(nil) {
		return "", fmt.Errorf("address %s has no payment key", address)
	}
	return hex.EncodeToString(keyHash.Bytes()), nil
}
