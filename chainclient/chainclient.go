// Package chainclient implements the Chain Client contract (spec
// section 4.1): the gas pool's only window onto the fullnode. Every
// read retries forever with capped exponential backoff; submission
// respects a caller-supplied attempt ceiling. Callers never see a
// transient RPC error — they see either a result or, for submission
// only, a terminal failure after the attempt budget is spent.
package chainclient

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/internal/retry"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
	"golang.org/x/sync/errgroup"
)

// chunkSize bounds how many object ids are batched into a single
// underlying RPC call, mirroring the reference implementation's
// 50-id-per-request chunking of multi-get-object lookups.
const chunkSize = 50

// objectPoller is the minimal surface FullnodeClient needs from a
// concrete RPC transport: object lookups, coin listing, dev-inspect and
// transaction submission. Keeping it as its own interface lets tests
// substitute a fake transport without faking retry/chunking behavior.
type objectPoller interface {
	// GetOwnedCoinsPage returns one page of a sponsor's native-token
	// coin objects, honoring cursor for pagination. hasNext reports
	// whether a further page exists.
	GetOwnedCoinsPage(ctx context.Context, owner types.Address, cursor []byte) (coins []types.GasCoin, nextCursor []byte, hasNext bool, err error)

	// MultiGetObjects resolves a batch (at most chunkSize) of object
	// ids to their latest on-chain state. A nil entry in the returned
	// slice (aligned with ids) means the object no longer exists.
	MultiGetObjects(ctx context.Context, ids []types.ObjectID) ([]*types.GasCoin, error)

	// GetObject resolves a single object id's latest on-chain version,
	// used by WaitForVersion polling.
	GetObject(ctx context.Context, id types.ObjectID) (*types.ObjectRef, error)

	// SubmitTransaction executes a signed transaction once, returning
	// execution effects or a transport/execution error. Retrying is the
	// caller's (FullnodeClient's) responsibility, not the transport's.
	SubmitTransaction(ctx context.Context, signed SignedTransaction, requestType RequestType) (*SubmitResult, error)

	// DevInspect dry-runs a transaction kind as sender without
	// submitting it, used only for calibration.
	DevInspect(ctx context.Context, sender types.Address, kind txn.TransactionKind) (*Effects, error)

	// ReferenceGasPrice returns the chain's current reference gas
	// price, used by operators to calibrate default budgets.
	ReferenceGasPrice(ctx context.Context) (uint64, error)
}

// RequestType selects the submission semantics the fullnode should
// apply before it considers a transaction "done" and returns.
type RequestType int

const (
	// RequestTypeWaitForEffectsCert waits for the execution certificate
	// — the default, per spec section 4.1.
	RequestTypeWaitForEffectsCert RequestType = iota
	// RequestTypeWaitForLocalExecution additionally waits for the
	// submitting fullnode to apply the effects locally.
	RequestTypeWaitForLocalExecution
)

// GasCostSummary is the signed net cost of executing a transaction:
// gas charged minus any refund.
type GasCostSummary struct {
	NetGasUsage int64
}

// Effects is the authoritative on-chain outcome of a transaction.
type Effects struct {
	GasObject      types.ObjectRef
	GasCostSummary GasCostSummary
	Success        bool
	Error          string
}

// Events is an opaque bag of events a transaction emitted. The gas
// pool core never inspects it; it only passes it through to callers.
type Events struct {
	Raw []byte
}

// SignedTransaction pairs unsigned transaction data with the sponsor
// and user signatures authorizing it.
type SignedTransaction struct {
	Data       txn.TransactionData
	SponsorSig txn.Signature
	UserSig    txn.Signature
}

// SubmitResult is the tuple SubmitTransaction returns on success.
type SubmitResult struct {
	TimestampMs *uint64
	Effects     Effects
	Events      *Events
}

// FullnodeClient is the retrying, chunking Chain Client the gas pool
// core depends on. It owns no state of its own beyond the transport;
// all retry and chunking policy lives here so the transport
// implementation can stay a thin RPC binding.
type FullnodeClient struct {
	rpc objectPoller
}

// New wraps transport with the Chain Client's retry and chunking
// policy.
func New(transport objectPoller) *FullnodeClient {
	return &FullnodeClient{rpc: transport}
}

// ListOwnedCoinsAbove returns every coin address owns whose balance is
// at least minBalance, paging through the fullnode's result set.
// Retried forever per page.
func (c *FullnodeClient) ListOwnedCoinsAbove(ctx context.Context, address types.Address, minBalance uint64) ([]types.GasCoin, error) {
	log.Info("querying owned coins above balance threshold", "address", address, "minBalance", minBalance)
	var coins []types.GasCoin
	var cursor []byte
	for {
		var page []types.GasCoin
		var next []byte
		var hasNext bool
		err := retry.Forever(ctx, func() error {
			var err error
			page, next, hasNext, err = c.rpc.GetOwnedCoinsPage(ctx, address, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, coin := range page {
			if coin.Balance >= minBalance {
				coins = append(coins, coin)
			}
		}
		if !hasNext {
			break
		}
		cursor = next
	}
	return coins, nil
}

// LatestState resolves a batch of object ids to their current on-chain
// state, chunking into groups of chunkSize and resolving chunks
// concurrently. A missing map entry is never returned for a requested
// id; a nil value means the object no longer exists (e.g. it was
// consumed into another coin).
func (c *FullnodeClient) LatestState(ctx context.Context, ids []types.ObjectID) (map[types.ObjectID]*types.GasCoin, error) {
	result := make(map[types.ObjectID]*types.GasCoin, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	chunks := chunk(ids, chunkSize)
	resultsByChunk := make([][]*types.GasCoin, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			var chunkResult []*types.GasCoin
			err := retry.Forever(gctx, func() error {
				var err error
				chunkResult, err = c.rpc.MultiGetObjects(gctx, ch)
				if err == nil && len(chunkResult) != len(ch) {
					return fmt.Errorf("chainclient: expected %d results, got %d", len(ch), len(chunkResult))
				}
				return err
			})
			if err != nil {
				return err
			}
			resultsByChunk[i] = chunkResult
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, ch := range chunks {
		for j, id := range ch {
			result[id] = resultsByChunk[i][j]
		}
	}
	return result, nil
}

// Submit executes tx via the fullnode's quorum-driver-style submission
// path, retrying up to maxAttempts times. requestType defaults to
// RequestTypeWaitForEffectsCert. Effects are always present on
// success; their absence is itself an error.
func (c *FullnodeClient) Submit(ctx context.Context, tx SignedTransaction, requestType *RequestType, maxAttempts int) (*SubmitResult, error) {
	rt := RequestTypeWaitForEffectsCert
	if requestType != nil {
		rt = *requestType
	}
	var result *SubmitResult
	err := retry.WithMaxAttempts(ctx, maxAttempts, func() error {
		var err error
		result, err = c.rpc.SubmitTransaction(ctx, tx, rt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chainclient: submit transaction: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("chainclient: submit transaction: no effects returned")
	}
	return result, nil
}

// WaitForVersion polls the fullnode until it reports exactly ref's
// (id, version), defeating read-after-write staleness after a
// transaction that is known to have produced this object version.
func (c *FullnodeClient) WaitForVersion(ctx context.Context, ref types.ObjectRef) error {
	for {
		var current *types.ObjectRef
		err := retry.Forever(ctx, func() error {
			var err error
			current, err = c.rpc.GetObject(ctx, ref.ObjectID)
			return err
		})
		if err != nil {
			return err
		}
		if current != nil && current.Version == ref.Version {
			return nil
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DevInspect dry-runs kind as sender, used only by calibration.
// Retried forever since it has no side effects to duplicate.
func (c *FullnodeClient) DevInspect(ctx context.Context, sender types.Address, kind txn.TransactionKind) (*Effects, error) {
	var effects *Effects
	err := retry.Forever(ctx, func() error {
		var err error
		effects, err = c.rpc.DevInspect(ctx, sender, kind)
		return err
	})
	return effects, err
}

// ReferenceGasPrice returns the chain's current reference gas price.
// Best-effort read, not on any invariant's critical path.
func (c *FullnodeClient) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price uint64
	err := retry.Forever(ctx, func() error {
		var err error
		price, err = c.rpc.ReferenceGasPrice(ctx)
		return err
	})
	return price, err
}

func chunk(ids []types.ObjectID, size int) [][]types.ObjectID {
	var chunks [][]types.ObjectID
	for size < len(ids) {
		ids, chunks = ids[size:], append(chunks, ids[:size:size])
	}
	return append(chunks, ids)
}
