package chainclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
)

// rpcTransport is the objectPoller implementation that talks to a real
// fullnode over JSON-RPC, the way ethclient.Client used to wrap
// rpc.Client for contract and transaction calls. Every method here is a
// single round trip; retry and chunking policy live one layer up in
// FullnodeClient.
type rpcTransport struct {
	c *rpc.Client
}

// DialContext connects to a fullnode's JSON-RPC endpoint and wraps it in
// the Chain Client's retry and chunking policy.
func DialContext(ctx context.Context, rawurl string) (*FullnodeClient, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s: %w", rawurl, err)
	}
	return New(&rpcTransport{c: c}), nil
}

type ownedCoinsPageResult struct {
	Coins      []types.GasCoin `json:"coins"`
	NextCursor []byte          `json:"nextCursor"`
	HasNext    bool            `json:"hasNext"`
}

func (t *rpcTransport) GetOwnedCoinsPage(ctx context.Context, owner types.Address, cursor []byte) ([]types.GasCoin, []byte, bool, error) {
	var res ownedCoinsPageResult
	if err := t.c.CallContext(ctx, &res, "gas_getOwnedCoinsPage", owner, cursor); err != nil {
		return nil, nil, false, err
	}
	return res.Coins, res.NextCursor, res.HasNext, nil
}

func (t *rpcTransport) MultiGetObjects(ctx context.Context, ids []types.ObjectID) ([]*types.GasCoin, error) {
	var res []*types.GasCoin
	if err := t.c.CallContext(ctx, &res, "gas_multiGetObjects", ids); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *rpcTransport) GetObject(ctx context.Context, id types.ObjectID) (*types.ObjectRef, error) {
	var res *types.ObjectRef
	if err := t.c.CallContext(ctx, &res, "gas_getObject", id); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *rpcTransport) SubmitTransaction(ctx context.Context, signed SignedTransaction, requestType RequestType) (*SubmitResult, error) {
	var res SubmitResult
	if err := t.c.CallContext(ctx, &res, "gas_submitTransaction", signed, requestType); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *rpcTransport) DevInspect(ctx context.Context, sender types.Address, kind txn.TransactionKind) (*Effects, error) {
	var res Effects
	if err := t.c.CallContext(ctx, &res, "gas_devInspectTransaction", sender, kind); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *rpcTransport) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var res uint64
	err := t.c.CallContext(ctx, &res, "gas_getReferenceGasPrice")
	return res, err
}
