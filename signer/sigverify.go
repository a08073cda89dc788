package signer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
)

// verifyP256 checks a raw (r, s) signature over hash against a P-256
// public key (x, y). Used by the local dev signer to self-check a
// signature before handing it back to a caller, so a corrupted key
// never silently produces a signature nobody can verify on chain.
func verifyP256(hash []byte, r, s, x, y *big.Int) bool {
	curve := elliptic.P256()
	if x == nil || y == nil || !curve.IsOnCurve(x, y) {
		return false
	}
	publicKey := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return ecdsa.Verify(publicKey, hash, r, s)
}
