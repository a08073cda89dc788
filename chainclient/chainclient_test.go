package chainclient_test

import (
	"context"
	"testing"

	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/chainclient/fakechain"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
	"github.com/stretchr/testify/require"
)

func seededChain(t *testing.T, n int) (*fakechain.Chain, []types.ObjectRef) {
	t.Helper()
	chain := fakechain.New()
	refs := make([]types.ObjectRef, n)
	for i := 0; i < n; i++ {
		id := types.ObjectID{byte(i + 1)}
		coin := types.GasCoin{Owner: types.Address{9}, ObjectRef: types.ObjectRef{ObjectID: id}, Balance: 100}
		chain.Seed(coin)
		refs[i] = coin.ObjectRef
	}
	return chain, refs
}

func TestLatestStateChunksAcrossManyObjects(t *testing.T) {
	chain, refs := seededChain(t, 120) // more than one 50-id chunk
	client := chainclient.New(chain)

	ids := make([]types.ObjectID, len(refs))
	for i, r := range refs {
		ids[i] = r.ObjectID
	}

	result, err := client.LatestState(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, result, 120)
	for _, id := range ids {
		require.NotNil(t, result[id])
		require.Equal(t, uint64(100), result[id].Balance)
	}
}

func TestLatestStateReportsMissingObjectsAsNil(t *testing.T) {
	chain := fakechain.New()
	client := chainclient.New(chain)

	result, err := client.LatestState(context.Background(), []types.ObjectID{{1}})
	require.NoError(t, err)
	require.Nil(t, result[types.ObjectID{1}])
}

func TestSubmitRetriesUpToMaxAttempts(t *testing.T) {
	chain, refs := seededChain(t, 1)
	chain.FailNextSubmit(2)
	chain.SetNextGasUsed(10)
	client := chainclient.New(chain)

	tx := chainclient.SignedTransaction{
		Data: txn.TransactionData{GasData: txn.GasData{Owner: types.Address{9}, Payment: refs}},
	}
	result, err := client.Submit(context.Background(), tx, nil, 3)
	require.NoError(t, err)
	require.True(t, result.Effects.Success)
}

func TestSubmitFailsAfterExhaustingAttempts(t *testing.T) {
	chain, refs := seededChain(t, 1)
	chain.FailNextSubmit(5)
	client := chainclient.New(chain)

	tx := chainclient.SignedTransaction{
		Data: txn.TransactionData{GasData: txn.GasData{Owner: types.Address{9}, Payment: refs}},
	}
	_, err := client.Submit(context.Background(), tx, nil, 2)
	require.Error(t, err)
}

func TestCalibrateGasCostPerObject(t *testing.T) {
	chain, refs := seededChain(t, 1)
	chain.SetNextGasUsed(1000)
	client := chainclient.New(chain)

	coin := types.GasCoin{Owner: types.Address{9}, ObjectRef: refs[0], Balance: 100}
	cost, err := client.CalibrateGasCostPerObject(context.Background(), types.Address{9}, coin)
	require.NoError(t, err)
	require.Greater(t, cost, uint64(0))
}
