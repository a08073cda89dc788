// Package store defines the Coin Store contract the gas pool core
// depends on (spec section 4.3): atomic, durable, thread-safe
// reservation, expiration and return of gas coins. It ships two
// implementations: an in-memory Store for tests and single-process
// deployments without crash-durability requirements, and a Pebble-backed
// Store that journals every mutation so a restarted process can recover
// its pool state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gaspool-io/gaspool/types"
)

// ErrNoCapacity is returned by Reserve when no subset of a sponsor's
// available coins sums to at least the requested budget.
var ErrNoCapacity = errors.New("store: no coin subset covers the requested budget")

// ErrReservationNotFound is returned by ReadyForExecution when the
// named reservation does not exist, already expired, or was already
// consumed. The orchestrator surfaces this as ReservationExpired.
var ErrReservationNotFound = errors.New("store: reservation not found")

// Store is the durable backing store for a sponsor's gas coin pool.
// Every method must be safe for concurrent use and every successful
// mutation must be visible to a process restarted immediately after
// the call returns.
type Store interface {
	// Reserve selects a best-effort minimal-cardinality subset of
	// sponsor's available coins whose summed balance is at least
	// gasBudget, removes them from the available set, and creates an
	// ACTIVE reservation with deadline now+ttl. Returns ErrNoCapacity
	// if no such subset exists.
	Reserve(ctx context.Context, sponsor types.Address, gasBudget uint64, ttl time.Duration) (types.ReservationID, []types.GasCoin, error)

	// ReadyForExecution atomically transitions an ACTIVE reservation to
	// IN_FLIGHT. This is the commit point past which the sweeper will
	// never touch the reservation's coins. Returns ErrReservationNotFound
	// if the reservation is unknown, already expired, or already
	// consumed, or if sponsor does not match the reservation's owner.
	ReadyForExecution(ctx context.Context, sponsor types.Address, id types.ReservationID) error

	// AddNewCoins inserts coins into the available set of their
	// respective owners. If a coin's object id is currently held by an
	// IN_FLIGHT reservation, that reservation (and every other coin it
	// held) is resolved and removed — the reservation is now TERMINAL.
	// Idempotent on (ObjectID, Version): applying the same coin version
	// twice has no additional effect after the first.
	AddNewCoins(ctx context.Context, coins []types.GasCoin) error

	// ExpireCoins atomically moves every ACTIVE reservation whose
	// deadline has passed to EXPIRED, and returns the object ids of the
	// coins that must now be reconciled against the chain and re-added
	// via AddNewCoins. Reservations that are IN_FLIGHT are never
	// touched here.
	ExpireCoins(ctx context.Context) ([]types.ObjectID, error)

	// AvailableCount reports how many coins are currently available for
	// sponsor. Observational only.
	AvailableCount(ctx context.Context, sponsor types.Address) (int, error)
}
