// Package signer defines the sponsor-signing contract the gas pool
// core depends on (spec section 4.2) and a local, in-process
// implementation suitable for a single-operator deployment or tests.
// A production deployment may instead back this interface with a
// remote HSM or custody service; the core never assumes which.
package signer

import (
	"context"

	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
)

// Signer produces sponsor signatures over transaction data and reports
// which sponsor addresses it can sign for.
type Signer interface {
	// Addresses returns the non-empty set of sponsor addresses this
	// signer can sign on behalf of. The first entry is used as the
	// default sponsor when a caller does not name one.
	Addresses() []types.Address

	// IsValidAddress reports whether a is one of the addresses this
	// signer controls.
	IsValidAddress(a types.Address) bool

	// Sign produces a sponsor signature over tx. It may fail (HSM
	// unavailable, network partition to a remote signer); the caller
	// is responsible for retrying.
	Sign(ctx context.Context, tx txn.TransactionData) (txn.Signature, error)
}
