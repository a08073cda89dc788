// Package fakechain is an in-memory fullnode double used by tests. It
// implements enough of the wire semantics the Chain Client depends on —
// object versioning, coin smashing on execution, and object deletion —
// to drive the state-machine and invariant tests in package gaspool
// without a real network.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
	"github.com/google/uuid"
)

// ErrSubmissionFailed is returned by SubmitTransaction when the fake
// chain has been scripted (via FailNextSubmit) to reject the next
// submission, simulating a quorum-driver failure.
var ErrSubmissionFailed = errors.New("fakechain: scripted submission failure")

// Chain is a minimal, in-memory simulation of a UTXO-style fullnode.
type Chain struct {
	mu          sync.Mutex
	objects     map[types.ObjectID]types.GasCoin
	deleted     map[types.ObjectID]bool
	failNext    int
	nextGasUsed int64
	refGasPrice uint64
}

// New returns an empty fake chain.
func New() *Chain {
	return &Chain{
		objects:     make(map[types.ObjectID]types.GasCoin),
		deleted:     make(map[types.ObjectID]bool),
		refGasPrice: 1000,
	}
}

// Seed places a coin on the fake chain exactly as given.
func (c *Chain) Seed(coin types.GasCoin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[coin.ObjectRef.ObjectID] = coin
}

// FailNextSubmit causes the next n calls to SubmitTransaction to fail
// with ErrSubmissionFailed instead of executing.
func (c *Chain) FailNextSubmit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// SetNextGasUsed fixes the net gas usage the next successful execution
// or dev-inspect will report.
func (c *Chain) SetNextGasUsed(netGasUsage int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextGasUsed = netGasUsage
}

// GetOwnedCoinsPage implements the transport surface consumed by
// chainclient.FullnodeClient.
func (c *Chain) GetOwnedCoinsPage(ctx context.Context, owner types.Address, cursor []byte) ([]types.GasCoin, []byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var coins []types.GasCoin
	for id, coin := range c.objects {
		if coin.Owner == owner && !c.deleted[id] {
			coins = append(coins, coin)
		}
	}
	return coins, nil, false, nil
}

// MultiGetObjects implements the transport surface.
func (c *Chain) MultiGetObjects(ctx context.Context, ids []types.ObjectID) ([]*types.GasCoin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.GasCoin, len(ids))
	for i, id := range ids {
		if coin, ok := c.objects[id]; ok && !c.deleted[id] {
			cp := coin
			out[i] = &cp
		}
	}
	return out, nil
}

// GetObject implements the transport surface.
func (c *Chain) GetObject(ctx context.Context, id types.ObjectID) (*types.ObjectRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coin, ok := c.objects[id]; ok && !c.deleted[id] {
		ref := coin.ObjectRef
		return &ref, nil
	}
	return nil, nil
}

// SubmitTransaction implements the transport surface: it "executes" tx
// by smashing every payment coin into the first, charging the
// scripted net gas usage, and bumping versions/digests.
func (c *Chain) SubmitTransaction(ctx context.Context, tx chainclient.SignedTransaction, requestType chainclient.RequestType) (*chainclient.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failNext > 0 {
		c.failNext--
		return nil, ErrSubmissionFailed
	}

	payment := tx.Data.GasData.Payment
	if len(payment) == 0 {
		return nil, fmt.Errorf("fakechain: transaction has no gas payment")
	}
	var total uint64
	for _, ref := range payment {
		coin, ok := c.objects[ref.ObjectID]
		if !ok || c.deleted[ref.ObjectID] {
			return nil, fmt.Errorf("fakechain: unknown payment object %s", ref.ObjectID)
		}
		total += coin.Balance
	}

	netGasUsage := c.nextGasUsed
	c.nextGasUsed = 0
	newBalance := int64(total) - netGasUsage
	if newBalance < 0 {
		newBalance = 0
	}

	survivor := payment[0].ObjectID
	newRef := types.ObjectRef{
		ObjectID: survivor,
		Version:  c.objects[survivor].ObjectRef.Version + 1,
		Digest:   newDigest(),
	}
	c.objects[survivor] = types.GasCoin{
		Owner:     tx.Data.GasData.Owner,
		ObjectRef: newRef,
		Balance:   uint64(newBalance),
	}
	for _, ref := range payment[1:] {
		c.deleted[ref.ObjectID] = true
	}

	return &chainclient.SubmitResult{
		Effects: chainclient.Effects{
			GasObject:      newRef,
			GasCostSummary: chainclient.GasCostSummary{NetGasUsage: netGasUsage},
			Success:        true,
		},
	}, nil
}

// DevInspect implements the transport surface with a fixed, scripted
// gas cost so calibration tests are deterministic.
func (c *Chain) DevInspect(ctx context.Context, sender types.Address, kind txn.TransactionKind) (*chainclient.Effects, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &chainclient.Effects{GasCostSummary: chainclient.GasCostSummary{NetGasUsage: c.nextGasUsed}}, nil
}

// ReferenceGasPrice implements the transport surface.
func (c *Chain) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refGasPrice, nil
}

func newDigest() types.Digest {
	id := uuid.New()
	var d types.Digest
	copy(d[:16], id[:])
	copy(d[16:], id[:])
	return d
}
