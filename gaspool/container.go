package gaspool

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/signer"
	"github.com/gaspool-io/gaspool/store"
)

// Container wires together a GasPool orchestrator and its Expiration
// Sweeper into a single startable, stoppable unit, in the Start/Stop
// lifecycle shape the rest of this codebase uses for long-running
// services. It owns the sweeper's goroutine; nothing else in this
// package spawns background work.
type Container struct {
	Pool *GasPool

	sweeper *sweeper
	started bool
}

// NewContainer constructs a Container over the given collaborators. The
// sweeper is not started until Start is called.
func NewContainer(sg signer.Signer, st store.Store, chain *chainclient.FullnodeClient, dailyGasCap uint64) *Container {
	pool := New(sg, st, chain, dailyGasCap)
	return &Container{
		Pool:    pool,
		sweeper: newSweeper(st, chain),
	}
}

// Start launches the Expiration Sweeper's background goroutine. Calling
// Start more than once is a no-op.
func (c *Container) Start() {
	if c.started {
		return
	}
	c.started = true
	log.Info("gas pool container starting", "sponsors", c.Pool.SupportedAddresses())
	go c.sweeper.run()
}

// Stop signals the sweeper to exit and blocks until it has. It does not
// wait for or cancel any reservation currently mid-execute; per the
// commit-point invariant those either complete and reconcile on their
// own or remain IN_FLIGHT. A durable store's replay restores them as
// IN_FLIGHT; nothing in this package resolves them after a restart.
func (c *Container) Stop() {
	if !c.started {
		return
	}
	log.Info("gas pool container stopping")
	c.sweeper.Stop()
	c.started = false
}
