package chainclient

import (
	"context"

	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
)

// splitCalibrationCount is the number of pieces a calibration coin is
// (dry-run) split into; dividing the observed gas cost by this count
// and doubling it for headroom yields a conservative per-object cost
// estimate. Mirrors the reference pool-seeding tool's calibration pass.
const splitCalibrationCount = 500

// BuildCoinSplitTx constructs a programmable transaction kind holding a
// single SplitCoins command whose arguments are inputs 0 (the coin) and
// 1 (the split count). The transaction model carries no input values,
// so neither gasCoin nor splitCount appears in the result. It is pure —
// it submits nothing — and exists purely to support out-of-core pool-seeding
// tooling (spec section 1 places initial pool seeding out of scope;
// this builder is reusable, harmless transaction-construction surface
// kept alongside the rest of the Chain Client's wire-shaping helpers).
func BuildCoinSplitTx(gasCoin types.ObjectRef, splitCount uint64) txn.ProgrammableTransaction {
	return txn.ProgrammableTransaction{
		Commands: []txn.Command{
			{
				Kind: txn.CommandSplitCoins,
				Arguments: []txn.Argument{
					{Kind: txn.ArgumentInput, Index: 0}, // the coin being split
					{Kind: txn.ArgumentInput, Index: 1}, // pure arg: splitCount
				},
			},
		},
	}
}

// CalibrateGasCostPerObject estimates the marginal gas cost of
// including one additional payment object in a transaction, by
// dry-running the BuildCoinSplitTx command and dividing the observed
// cost by splitCalibrationCount, then doubling it. The dry-run
// transaction does not name gasCoin or the piece count (see
// BuildCoinSplitTx). Used only by operator calibration
// tooling, never by the reservation/execution path.
func (c *FullnodeClient) CalibrateGasCostPerObject(ctx context.Context, sponsor types.Address, gasCoin types.GasCoin) (uint64, error) {
	pt := BuildCoinSplitTx(gasCoin.ObjectRef, splitCalibrationCount)
	effects, err := c.DevInspect(ctx, sponsor, txn.TransactionKind{Programmable: &pt})
	if err != nil {
		return 0, err
	}
	gasUsed := effects.GasCostSummary.NetGasUsage
	if gasUsed < 0 {
		gasUsed = 0
	}
	// Doubled for headroom against precision loss, as the reference
	// calibration tool does.
	return uint64(gasUsed) / splitCalibrationCount * 2, nil
}
