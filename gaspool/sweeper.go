package gaspool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/internal/retry"
	"github.com/gaspool-io/gaspool/store"
	"github.com/gaspool-io/gaspool/types"
)

// sweepInterval is how often the Expiration Sweeper scans for reservations
// past their deadline.
const sweepInterval = time.Second

// sweeper is the Expiration Sweeper (spec section 4.6): a background loop
// that moves expired reservations' coins back into circulation after
// reconciling their true on-chain state, since a reservation can expire
// without its coins ever having been touched, spent, or smashed.
type sweeper struct {
	store store.Store
	chain interface {
		LatestState(ctx context.Context, ids []types.ObjectID) (map[types.ObjectID]*types.GasCoin, error)
	}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSweeper(st store.Store, chain interface {
	LatestState(ctx context.Context, ids []types.ObjectID) (map[types.ObjectID]*types.GasCoin, error)
}) *sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &sweeper{
		store:  st,
		chain:  chain,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run executes the sweep loop until Stop is called. Intended to be run in
// its own goroutine.
func (s *sweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.ctx.Done():
			return
		}
	}
}

// sweepOnce expires due reservations and reconciles their coins. Any
// failure here must never escape, the sweeper has no caller to surface it
// to, so every fallible step retries forever — but against s.ctx, which
// Stop cancels, so a down dependency can never wedge shutdown.
func (s *sweeper) sweepOnce() {
	ctx := s.ctx

	var expiredIDs []types.ObjectID
	err := retry.Forever(ctx, func() error {
		var err error
		expiredIDs, err = s.store.ExpireCoins(ctx)
		return err
	})
	if err != nil {
		log.Error("sweeper: failed to expire reservations", "err", err)
		return
	}
	if len(expiredIDs) == 0 {
		return
	}
	log.Debug("sweeper: reservations expired", "coinCount", len(expiredIDs))

	var latest map[types.ObjectID]*types.GasCoin
	err = retry.Forever(ctx, func() error {
		var err error
		latest, err = s.chain.LatestState(ctx, expiredIDs)
		return err
	})
	if err != nil {
		log.Error("sweeper: failed to resolve expired coins against the chain", "err", err)
		return
	}

	var reclaimed []types.GasCoin
	for _, coin := range latest {
		if coin != nil {
			reclaimed = append(reclaimed, *coin)
		}
	}

	err = retry.Forever(ctx, func() error {
		return s.store.AddNewCoins(ctx, reclaimed)
	})
	if err != nil {
		log.Error("sweeper: failed to return expired coins to the pool", "err", err)
		return
	}
	log.Info("sweeper: reclaimed coins from expired reservations", "count", len(reclaimed), "smashed", len(expiredIDs)-len(reclaimed))
}

// Stop signals the sweep loop to exit and blocks until it has. Cancelling
// s.ctx unwedges any in-flight retry.Forever call in sweepOnce, so Stop
// cannot hang on a down chain or store.
func (s *sweeper) Stop() {
	s.cancel()
	<-s.done
}
