package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
)

// DevSigner is an in-process Signer backed by P-256 keys held in
// memory. It is meant for local development and tests; a production
// sponsor should back the Signer interface with a remote custody
// service or HSM instead.
type DevSigner struct {
	keys      map[types.Address]*ecdsa.PrivateKey
	addresses []types.Address
}

// NewDevSigner generates n sponsor key pairs and derives their
// addresses. n must be at least 1.
func NewDevSigner(n int) (*DevSigner, error) {
	if n < 1 {
		return nil, fmt.Errorf("signer: need at least one sponsor address, got %d", n)
	}
	s := &DevSigner{keys: make(map[types.Address]*ecdsa.PrivateKey, n)}
	for i := 0; i < n; i++ {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("signer: generate key: %w", err)
		}
		addr := addressFromPublicKey(&key.PublicKey)
		s.keys[addr] = key
		s.addresses = append(s.addresses, addr)
		log.Info("provisioned sponsor signing key", "address", addr)
	}
	return s, nil
}

func addressFromPublicKey(pub *ecdsa.PublicKey) types.Address {
	digest := sha256.Sum256(append(pub.X.Bytes(), pub.Y.Bytes()...))
	var addr types.Address
	copy(addr[:], digest[:])
	return addr
}

// Addresses implements Signer.
func (s *DevSigner) Addresses() []types.Address {
	out := make([]types.Address, len(s.addresses))
	copy(out, s.addresses)
	return out
}

// IsValidAddress implements Signer.
func (s *DevSigner) IsValidAddress(a types.Address) bool {
	_, ok := s.keys[a]
	return ok
}

// Sign implements Signer.
func (s *DevSigner) Sign(ctx context.Context, tx txn.TransactionData) (txn.Signature, error) {
	key, ok := s.keys[tx.GasData.Owner]
	if !ok {
		return nil, fmt.Errorf("signer: no key for sponsor %s", tx.GasData.Owner)
	}
	digest := tx.Hash()
	r, sVal, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signer: sign: %w", err)
	}
	if !verifyP256(digest[:], r, sVal, key.PublicKey.X, key.PublicKey.Y) {
		return nil, fmt.Errorf("signer: produced signature failed self-verification")
	}
	sig := make(txn.Signature, 0, 64)
	sig = append(sig, r.Bytes()...)
	sig = append(sig, sVal.Bytes()...)
	return sig, nil
}
