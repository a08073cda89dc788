// Package gaspool implements the Reservation/Execution Orchestrator
// (spec section 4.5), the Expiration Sweeper (4.6), and the container
// that owns both (4.7) — the front door of the sponsored gas pool
// service. Every suspension point (chain client, signer, coin store
// calls) is reached without holding a lock; all mutual exclusion lives
// inside the Coin Store and Usage Cap this package depends on.
package gaspool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/gascap"
	"github.com/gaspool-io/gaspool/internal/retry"
	"github.com/gaspool-io/gaspool/signer"
	"github.com/gaspool-io/gaspool/store"
	"github.com/gaspool-io/gaspool/txn"
	"github.com/gaspool-io/gaspool/types"
)

// signAndSubmitAttempts bounds both signing and submission retries.
// Hardcoded here and propagated down into the chain client call,
// matching spec section 9's noted open question about idempotency
// across retries being an assumption, not an enforced guarantee.
const signAndSubmitAttempts = 3

// healthCheckBudget is the gas budget reserved for the health-check
// probe transaction; small enough not to meaningfully compete with
// real traffic for pool capacity.
const healthCheckBudget = 10_000_000

// GasPool is the Reservation/Execution Orchestrator. It holds no
// mutable state of its own; every invariant it depends on is enforced
// by the Coin Store and Usage Cap it wraps.
type GasPool struct {
	signer signer.Signer
	store  store.Store
	chain  *chainclient.FullnodeClient
	cap    *gascap.Cap
}

// New constructs a GasPool over the given collaborators.
func New(sg signer.Signer, st store.Store, chain *chainclient.FullnodeClient, dailyGasCap uint64) *GasPool {
	return &GasPool{
		signer: sg,
		store:  st,
		chain:  chain,
		cap:    gascap.New(dailyGasCap),
	}
}

// SupportedAddresses returns every sponsor address this service can
// sign on behalf of.
func (p *GasPool) SupportedAddresses() []types.Address {
	return p.signer.Addresses()
}

// AvailableCount reports how many coins are currently available for
// sponsor. Observational only.
func (p *GasPool) AvailableCount(ctx context.Context, sponsor types.Address) (int, error) {
	return p.store.AvailableCount(ctx, sponsor)
}

// Reserve implements spec section 4.5's reserve operation.
func (p *GasPool) Reserve(ctx context.Context, sponsor *types.Address, gasBudget uint64, ttl time.Duration) (types.Address, types.ReservationID, []types.ObjectRef, error) {
	addr := p.signer.Addresses()[0]
	if sponsor != nil {
		addr = *sponsor
	}

	if err := p.cap.Check(); err != nil {
		return types.Address{}, 0, nil, err
	}

	start := time.Now()
	id, coins, err := p.store.Reserve(ctx, addr, gasBudget, ttl)
	if err != nil {
		return types.Address{}, 0, nil, err
	}
	reserveLatencyTimer.UpdateSince(start)
	reservedCoinCountHistogram.Update(int64(len(coins)))

	refs := make([]types.ObjectRef, len(coins))
	for i, c := range coins {
		refs[i] = c.ObjectRef
	}
	log.Info("reserved gas coins", "sponsor", addr, "reservationID", id, "coinCount", len(coins))
	return addr, id, refs, nil
}

// Execute implements spec section 4.5's execute operation.
func (p *GasPool) Execute(ctx context.Context, reservationID types.ReservationID, tx txn.TransactionData, requestType *chainclient.RequestType, userSig txn.Signature) (*chainclient.SubmitResult, error) {
	sponsor := tx.GasData.Owner
	if !p.signer.IsValidAddress(sponsor) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSponsor, sponsor)
	}
	if err := checkTransactionValidity(tx); err != nil {
		return nil, err
	}

	payment := tx.GasData.Payment
	paymentIDs := make([]types.ObjectID, len(payment))
	for i, ref := range payment {
		paymentIDs[i] = ref.ObjectID
	}
	log.Debug("payment coins in transaction", "reservationID", reservationID, "payment", paymentIDs)

	// Commit point: after this call succeeds, the sweeper will never
	// touch these coins again, and we are obligated to return them.
	if err := p.store.ReadyForExecution(ctx, sponsor, reservationID); err != nil {
		if errors.Is(err, store.ErrReservationNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrReservationExpired, err)
		}
		return nil, err
	}
	log.Debug("reservation is ready for execution", "reservationID", reservationID)

	preBalance, err := p.totalBalance(ctx, paymentIDs)
	if err != nil {
		// Reading the chain failed to even retry-forever recover within
		// ctx's deadline; we must still reconcile the coins we already
		// took custody of before surfacing this.
		return p.reconcileAndReturn(ctx, sponsor, paymentIDs, preBalance, nil, err).finish(reservationID)
	}
	log.Debug("total gas coin balance prior to execution", "reservationID", reservationID, "balance", preBalance)

	result, execErr := p.executeImpl(ctx, sponsor, tx, requestType, userSig)
	return p.reconcileAndReturn(ctx, sponsor, paymentIDs, preBalance, result, execErr).finish(reservationID)
}

// executeImpl signs and submits tx, then records net gas usage against
// the sponsor's daily cap. Called only after ReadyForExecution has
// already taken custody of the payment coins.
func (p *GasPool) executeImpl(ctx context.Context, sponsor types.Address, tx txn.TransactionData, requestType *chainclient.RequestType, userSig txn.Signature) (*chainclient.SubmitResult, error) {
	start := time.Now()
	var sponsorSig txn.Signature
	err := retry.WithMaxAttempts(ctx, signAndSubmitAttempts, func() error {
		var err error
		sponsorSig, err = p.signer.Sign(ctx, tx)
		if err != nil {
			log.Error("failed to sign transaction", "err", err)
		}
		return err
	})
	signingLatencyTimer.UpdateSince(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignerFailed, err)
	}
	log.Debug("transaction signed by sponsor", "sponsor", sponsor)

	signed := chainclient.SignedTransaction{Data: tx, SponsorSig: sponsorSig, UserSig: userSig}
	start = time.Now()
	result, err := p.chain.Submit(ctx, signed, requestType, signAndSubmitAttempts)
	executionLatencyTimer.UpdateSince(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	newUsage := p.cap.Update(result.Effects.GasCostSummary.NetGasUsage)
	dailyGasUsageGauge(sponsor).Update(float64(newUsage))
	return result, nil
}

func (p *GasPool) totalBalance(ctx context.Context, ids []types.ObjectID) (uint64, error) {
	latest, err := p.chain.LatestState(ctx, ids)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, coin := range latest {
		if coin != nil {
			total += coin.Balance
		}
	}
	return total, nil
}

// reconcileOutcome carries the post-execution step's result so finish
// can return the original response after the uncancellable reconcile
// phase completes.
type reconcileOutcome struct {
	result *chainclient.SubmitResult
	err    error
}

func (o *reconcileOutcome) finish(reservationID types.ReservationID) (*chainclient.SubmitResult, error) {
	log.Info("transaction execution finished", "reservationID", reservationID)
	return o.result, o.err
}

// reconcileAndReturn resolves the payment coins' post-execution state
// and returns them to the pool. It runs in a context detached from
// ctx's cancellation (spec section 9: "cooperative un-cancellability")
// so a caller cancelling Execute after the commit point can never
// orphan coins the store has already taken out of circulation.
func (p *GasPool) reconcileAndReturn(ctx context.Context, sponsor types.Address, paymentIDs []types.ObjectID, preBalance uint64, result *chainclient.SubmitResult, execErr error) *reconcileOutcome {
	detached := context.WithoutCancel(ctx)

	var survivors []types.GasCoin
	if execErr == nil {
		newBalance := int64(preBalance) - result.Effects.GasCostSummary.NetGasUsage
		if newBalance < 0 {
			newBalance = 0
		}
		survivors = []types.GasCoin{{
			Owner:     sponsor,
			ObjectRef: result.Effects.GasObject,
			Balance:   uint64(newBalance),
		}}
	} else {
		log.Debug("querying latest gas state since transaction failed", "sponsor", sponsor)
		latest, err := p.latestStateForever(detached, paymentIDs)
		if err != nil {
			execErr = errors.Join(execErr, err)
		}
		for _, coin := range latest {
			if coin != nil {
				survivors = append(survivors, *coin)
			}
		}
	}

	smashed := len(paymentIDs) - len(survivors)
	if smashed > 0 {
		log.Info("smashed coins after transaction execution", "sponsor", sponsor, "count", smashed)
		smashedCoinsCounter(sponsor).Inc(int64(smashed))
	}

	// Not optional: once ReadyForExecution succeeded, these coins are
	// off the books. Failing to return them leaks them permanently.
	err := retry.Forever(detached, func() error {
		err := p.store.AddNewCoins(detached, survivors)
		if err != nil {
			log.Error("failed to return gas coins to the pool", "err", err)
		}
		return err
	})
	if err != nil {
		// detached is never cancelled, so retry.Forever does not give up
		// and this branch is not reached in practice.
		log.Error("gave up returning gas coins to the pool", "err", err)
	}

	return &reconcileOutcome{result: result, err: execErr}
}

func (p *GasPool) latestStateForever(ctx context.Context, ids []types.ObjectID) (map[types.ObjectID]*types.GasCoin, error) {
	var latest map[types.ObjectID]*types.GasCoin
	err := retry.Forever(ctx, func() error {
		var err error
		latest, err = p.chain.LatestState(ctx, ids)
		return err
	})
	return latest, err
}

// checkTransactionValidity enforces spec section 4.5's gas-coin misuse
// rule: the gas coin pseudo-argument may only ever pay gas, never
// appear as a regular input to any command. Publish and Upgrade
// commands carry no object arguments and are trivially accepted.
func checkTransactionValidity(tx txn.TransactionData) error {
	pt := tx.Kind.Programmable
	if pt == nil {
		return nil
	}
	for _, cmd := range pt.Commands {
		for _, arg := range cmd.Arguments {
			if arg.IsGasCoin() {
				return ErrGasCoinMisuse
			}
		}
	}
	return nil
}

// HealthCheck reserves a small budget, builds an empty programmable
// transaction paying the sponsor itself, and signs it (never submits),
// validating signer liveness end-to-end without consuming gas.
func (p *GasPool) HealthCheck(ctx context.Context) error {
	sponsor := p.signer.Addresses()[0]
	_, _, refs, err := p.Reserve(ctx, &sponsor, healthCheckBudget, 3*time.Second)
	if err != nil {
		return err
	}
	tx := txn.TransactionData{
		Sender: types.Address{},
		Kind:   txn.TransactionKind{Programmable: &txn.ProgrammableTransaction{}},
		GasData: txn.GasData{
			Owner:   sponsor,
			Payment: refs,
			Budget:  healthCheckBudget,
		},
	}
	_, err = p.signer.Sign(ctx, tx)
	return err
}
