package gaspool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/chainclient/fakechain"
	"github.com/gaspool-io/gaspool/gascap"
	"github.com/gaspool-io/gaspool/gaspool"
	"github.com/gaspool-io/gaspool/signer"
	"github.com/gaspool-io/gaspool/store"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, dailyCap uint64) (*gaspool.GasPool, *fakechain.Chain, types.Address, *store.MemStore) {
	t.Helper()
	sg, err := signer.NewDevSigner(1)
	require.NoError(t, err)
	sponsor := sg.Addresses()[0]

	chain := fakechain.New()
	st := store.NewMemStore()
	seedCoins := []types.GasCoin{
		{Owner: sponsor, ObjectRef: types.ObjectRef{ObjectID: types.ObjectID{1}}, Balance: 1000},
		{Owner: sponsor, ObjectRef: types.ObjectRef{ObjectID: types.ObjectID{2}}, Balance: 1000},
		// a headroom coin large enough to cover HealthCheck's fixed budget
		{Owner: sponsor, ObjectRef: types.ObjectRef{ObjectID: types.ObjectID{3}}, Balance: 20_000_000},
	}
	require.NoError(t, st.SeedCoins(seedCoins))
	for _, c := range seedCoins {
		chain.Seed(c)
	}

	client := chainclient.New(chain)
	pool := gaspool.New(sg, st, client, dailyCap)
	return pool, chain, sponsor, st
}

func TestReserveThenExecuteHappyPath(t *testing.T) {
	pool, chain, sponsor, _ := newTestPool(t, 1_000_000)
	chain.SetNextGasUsed(100)
	ctx := context.Background()

	addr, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Minute)
	require.NoError(t, err)
	require.Equal(t, sponsor, addr)
	require.NotEmpty(t, refs)

	tx := txn.TransactionData{
		Sender: sponsor,
		GasData: txn.GasData{
			Owner:   sponsor,
			Payment: refs,
			Budget:  500,
		},
	}
	result, err := pool.Execute(ctx, id, tx, nil, txn.Signature("user-sig"))
	require.NoError(t, err)
	require.True(t, result.Effects.Success)
}

func TestExecuteRejectsUnknownSponsor(t *testing.T) {
	pool, _, sponsor, _ := newTestPool(t, 1_000_000)
	ctx := context.Background()

	_, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Minute)
	require.NoError(t, err)

	tx := txn.TransactionData{GasData: txn.GasData{Owner: types.Address{0xff}, Payment: refs, Budget: 500}}
	_, err = pool.Execute(ctx, id, tx, nil, nil)
	require.ErrorIs(t, err, gaspool.ErrUnknownSponsor)
}

func TestExecuteRejectsGasCoinMisuse(t *testing.T) {
	pool, _, sponsor, _ := newTestPool(t, 1_000_000)
	ctx := context.Background()

	_, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Minute)
	require.NoError(t, err)

	tx := txn.TransactionData{
		GasData: txn.GasData{Owner: sponsor, Payment: refs, Budget: 500},
		Kind: txn.TransactionKind{Programmable: &txn.ProgrammableTransaction{
			Commands: []txn.Command{{Kind: txn.CommandMergeCoins, Arguments: []txn.Argument{{Kind: txn.ArgumentGasCoin}}}},
		}},
	}
	_, err = pool.Execute(ctx, id, tx, nil, nil)
	require.ErrorIs(t, err, gaspool.ErrGasCoinMisuse)
}

func TestExecuteRejectsExpiredReservation(t *testing.T) {
	pool, _, sponsor, st := newTestPool(t, 1_000_000)
	ctx := context.Background()

	_, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// No sweeper is running against this pool; expire the reservation
	// directly the way the sweeper would.
	_, err = st.ExpireCoins(ctx)
	require.NoError(t, err)

	tx := txn.TransactionData{GasData: txn.GasData{Owner: sponsor, Payment: refs, Budget: 500}}
	_, err = pool.Execute(ctx, id, tx, nil, nil)
	require.ErrorIs(t, err, gaspool.ErrReservationExpired)
}

func TestReserveRejectsOverDailyCap(t *testing.T) {
	pool, chain, sponsor, _ := newTestPool(t, 100)
	chain.SetNextGasUsed(100)
	ctx := context.Background()

	_, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Minute)
	require.NoError(t, err)
	tx := txn.TransactionData{GasData: txn.GasData{Owner: sponsor, Payment: refs, Budget: 500}}
	_, err = pool.Execute(ctx, id, tx, nil, nil)
	require.NoError(t, err)

	_, _, _, err = pool.Reserve(ctx, &sponsor, 100, time.Minute)
	require.ErrorIs(t, err, gascap.ErrCapExceeded)
}

func TestExecuteIsAtMostOnceUnderConcurrentAttempts(t *testing.T) {
	pool, chain, sponsor, _ := newTestPool(t, 1_000_000)
	chain.SetNextGasUsed(10)
	ctx := context.Background()

	_, id, refs, err := pool.Reserve(ctx, &sponsor, 500, time.Minute)
	require.NoError(t, err)

	tx := txn.TransactionData{GasData: txn.GasData{Owner: sponsor, Payment: refs, Budget: 500}}

	var wg sync.WaitGroup
	successes := 0
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Execute(ctx, id, tx, nil, nil)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes, "exactly one concurrent execute attempt on the same reservation should succeed")
}

func TestHealthCheckSucceeds(t *testing.T) {
	pool, _, _, _ := newTestPool(t, 1_000_000)
	require.NoError(t, pool.HealthCheck(context.Background()))
}
