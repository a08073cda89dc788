// Package types defines the value objects shared across the gas pool
// service: addresses, object references, gas coins and reservation
// identifiers. None of these types carry behavior beyond basic
// formatting; the state machine that governs them lives in store and
// gaspool.
package types

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the width in bytes of a chain address.
const AddressLength = 32

// ObjectIDLength is the width in bytes of an object identifier.
const ObjectIDLength = 32

// DigestLength is the width in bytes of a transaction or object digest.
const DigestLength = 32

// Address identifies a sponsor or transaction signer on chain.
type Address [AddressLength]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ObjectID identifies an on-chain object independent of its version.
type ObjectID [ObjectIDLength]byte

func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Digest is a content hash of a transaction or an object's contents at
// a particular version.
type Digest [DigestLength]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ObjectRef pins a specific version of an object, the unit a
// transaction references when it spends a gas coin.
type ObjectRef struct {
	ObjectID ObjectID
	Version  uint64
	Digest   Digest
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s@%d/%s", r.ObjectID, r.Version, r.Digest)
}

// GasCoin is an ephemeral view of a native-token object: who owns it,
// which exact version it is, and how much it is worth. It is produced
// by initial pool loading, by execution effects, and by post-expiration
// chain lookups; it is never itself the system of record.
type GasCoin struct {
	Owner     Address
	ObjectRef ObjectRef
	Balance   uint64
}

func (c GasCoin) String() string {
	return fmt.Sprintf("GasCoin{owner=%s, ref=%s, balance=%d}", c.Owner, c.ObjectRef, c.Balance)
}

// ReservationID opaquely identifies a reservation. The coin store
// allocates these monotonically; callers must treat the value itself
// as meaningless beyond equality.
type ReservationID uint64

func (r ReservationID) String() string {
	return fmt.Sprintf("reservation#%d", uint64(r))
}
