package signer

import (
	"context"
	"testing"

	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
	"github.com/stretchr/testify/require"
)

func TestNewDevSignerRejectsZero(t *testing.T) {
	_, err := NewDevSigner(0)
	require.Error(t, err)
}

func TestDevSignerAddressesAndValidity(t *testing.T) {
	s, err := NewDevSigner(3)
	require.NoError(t, err)
	addrs := s.Addresses()
	require.Len(t, addrs, 3)
	for _, a := range addrs {
		require.True(t, s.IsValidAddress(a))
	}
	require.False(t, s.IsValidAddress(types.Address{0xff}))
}

func TestDevSignerSignProducesVerifiableSignature(t *testing.T) {
	s, err := NewDevSigner(1)
	require.NoError(t, err)
	sponsor := s.Addresses()[0]

	tx := txn.TransactionData{GasData: txn.GasData{Owner: sponsor, Budget: 100}}
	sig, err := s.Sign(context.Background(), tx)
	require.NoError(t, err)
	require.NotEmpty(t, sig)
}

func TestDevSignerSignRejectsUnknownSponsor(t *testing.T) {
	s, err := NewDevSigner(1)
	require.NoError(t, err)

	tx := txn.TransactionData{GasData: txn.GasData{Owner: types.Address{0xff}}}
	_, err = s.Sign(context.Background(), tx)
	require.Error(t, err)
}
