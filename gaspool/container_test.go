package gaspool_test

import (
	"context"
	"testing"
	"time"

	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/chainclient/fakechain"
	"github.com/gaspool-io/gaspool/gaspool"
	"github.com/gaspool-io/gaspool/signer"
	"github.com/gaspool-io/gaspool/store"
	"github.com/gaspool-io/gaspool/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestContainerStartStopLeavesNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	sg, err := signer.NewDevSigner(1)
	require.NoError(t, err)
	chain := fakechain.New()
	client := chainclient.New(chain)
	st := store.NewMemStore()

	c := gaspool.NewContainer(sg, st, client, 1_000_000)
	c.Start()
	c.Start() // idempotent
	time.Sleep(10 * time.Millisecond)
	c.Stop()
	c.Stop() // idempotent
}

func TestContainerSweeperReclaimsExpiredReservation(t *testing.T) {
	sg, err := signer.NewDevSigner(1)
	require.NoError(t, err)
	sponsor := sg.Addresses()[0]

	chain := fakechain.New()
	client := chainclient.New(chain)
	st := store.NewMemStore()
	require.NoError(t, st.SeedCoins([]types.GasCoin{
		{Owner: sponsor, ObjectRef: types.ObjectRef{ObjectID: types.ObjectID{1}}, Balance: 500},
	}))
	chain.Seed(types.GasCoin{Owner: sponsor, ObjectRef: types.ObjectRef{ObjectID: types.ObjectID{1}}, Balance: 500})

	c := gaspool.NewContainer(sg, st, client, 1_000_000)
	c.Start()
	defer c.Stop()

	ctx := context.Background()
	_, _, _, err = c.Pool.Reserve(ctx, &sponsor, 500, 5*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := c.Pool.AvailableCount(ctx, sponsor)
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond, "sweeper should reclaim the expired reservation's coin")
}
