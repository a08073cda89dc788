package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gaspool-io/gaspool/types"
)

type reservationStatus int

const (
	statusActive reservationStatus = iota
	statusInFlight
)

type reservation struct {
	sponsor  types.Address
	coinIDs  []types.ObjectID
	status   reservationStatus
	deadline time.Time
}

// engine holds the in-memory bookkeeping shared by MemStore and
// PebbleStore: the coin data, the per-sponsor available sets, and the
// reservation records. PebbleStore layers durability on top by
// journaling the events that mutate this state and replaying them on
// startup; MemStore uses it directly with no journal.
type engine struct {
	mu sync.Mutex

	// coins holds the authoritative data for every coin this store has
	// ever seen, available or reserved.
	coins map[types.ObjectID]types.GasCoin

	// available is the per-sponsor set of object ids currently free to
	// reserve.
	available map[types.Address]mapset.Set[types.ObjectID]

	// reservedBy maps an object id currently held by a reservation to
	// that reservation's id. An id absent here is either available or
	// was never seen.
	reservedBy map[types.ObjectID]types.ReservationID

	reservations map[types.ReservationID]*reservation

	nextReservationID atomic.Uint64

	// journal, when non-nil, is invoked with a durable record of every
	// successful mutation before the method returns. A nil journal
	// means state lives only in memory.
	journal func(event) error
}

// MemStore is an in-memory Store. It satisfies the spec's atomicity and
// thread-safety requirements but not its durability requirement — state
// is lost on process restart. Use PebbleStore where crash-durability
// matters.
type MemStore = engine

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return newEngine(nil)
}

func newEngine(journal func(event) error) *engine {
	return &engine{
		coins:        make(map[types.ObjectID]types.GasCoin),
		available:    make(map[types.Address]mapset.Set[types.ObjectID]),
		reservedBy:   make(map[types.ObjectID]types.ReservationID),
		reservations: make(map[types.ReservationID]*reservation),
		journal:      journal,
	}
}

// SeedCoins loads initial pool coins for a sponsor, bypassing
// reservation bookkeeping. Used by pool initialization (out of core
// scope, spec section 1) and by tests.
func (s *engine) SeedCoins(coins []types.GasCoin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		if err := s.journal(event{Kind: eventSeed, Coins: coins}); err != nil {
			return err
		}
	}
	s.applySeed(coins)
	return nil
}

func (s *engine) applySeed(coins []types.GasCoin) {
	for _, c := range coins {
		s.coins[c.ObjectRef.ObjectID] = c
		s.availableSetLocked(c.Owner).Add(c.ObjectRef.ObjectID)
	}
}

func (s *engine) availableSetLocked(sponsor types.Address) mapset.Set[types.ObjectID] {
	set, ok := s.available[sponsor]
	if !ok {
		set = mapset.NewThreadUnsafeSet[types.ObjectID]()
		s.available[sponsor] = set
	}
	return set
}

// Reserve implements Store.
func (s *engine) Reserve(ctx context.Context, sponsor types.Address, gasBudget uint64, ttl time.Duration) (types.ReservationID, []types.GasCoin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.availableSetLocked(sponsor)
	candidates := make([]types.GasCoin, 0, set.Cardinality())
	for id := range set.Iter() {
		candidates = append(candidates, s.coins[id])
	}
	// Minimal-cardinality greedy: largest balances first.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Balance > candidates[j].Balance
	})

	var chosen []types.GasCoin
	var sum uint64
	for _, c := range candidates {
		if sum >= gasBudget {
			break
		}
		chosen = append(chosen, c)
		sum += c.Balance
	}
	if sum < gasBudget {
		return 0, nil, ErrNoCapacity
	}

	id := types.ReservationID(s.nextReservationID.Add(1))
	deadline := time.Now().Add(ttl)
	coinIDs := make([]types.ObjectID, 0, len(chosen))
	for _, c := range chosen {
		coinIDs = append(coinIDs, c.ObjectRef.ObjectID)
	}

	if s.journal != nil {
		if err := s.journal(event{Kind: eventReserve, ReservationID: id, Sponsor: sponsor, CoinIDs: coinIDs, Deadline: deadline}); err != nil {
			return 0, nil, err
		}
	}

	for _, c := range chosen {
		set.Remove(c.ObjectRef.ObjectID)
		s.reservedBy[c.ObjectRef.ObjectID] = id
	}
	s.reservations[id] = &reservation{
		sponsor:  sponsor,
		coinIDs:  coinIDs,
		status:   statusActive,
		deadline: deadline,
	}
	log.Debug("reserved gas coins", "sponsor", sponsor, "reservationID", id, "count", len(chosen), "sum", sum)
	return id, chosen, nil
}

// ReadyForExecution implements Store.
func (s *engine) ReadyForExecution(ctx context.Context, sponsor types.Address, id types.ReservationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok || r.sponsor != sponsor || r.status != statusActive {
		return ErrReservationNotFound
	}
	if s.journal != nil {
		if err := s.journal(event{Kind: eventReadyForExecution, ReservationID: id, Sponsor: sponsor}); err != nil {
			return err
		}
	}
	r.status = statusInFlight
	return nil
}

// AddNewCoins implements Store.
func (s *engine) AddNewCoins(ctx context.Context, coins []types.GasCoin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]types.GasCoin, 0, len(coins))
	for _, c := range coins {
		id := c.ObjectRef.ObjectID
		if existing, ok := s.coins[id]; ok && existing.ObjectRef.Version == c.ObjectRef.Version &&
			s.availableSetLocked(existing.Owner).Contains(id) {
			continue // already applied, idempotent no-op
		}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return nil
	}
	if s.journal != nil {
		if err := s.journal(event{Kind: eventAddNewCoins, Coins: pending}); err != nil {
			return err
		}
	}
	s.applyAddNewCoins(pending)
	return nil
}

func (s *engine) applyAddNewCoins(coins []types.GasCoin) {
	for _, c := range coins {
		id := c.ObjectRef.ObjectID
		if resID, ok := s.reservedBy[id]; ok {
			s.resolveReservationLocked(resID)
		}
		s.coins[id] = c
		s.availableSetLocked(c.Owner).Add(id)
	}
}

// resolveReservationLocked clears every coin held by reservation id,
// whether or not it is among the coins being returned, and deletes the
// reservation record. Callers must hold s.mu.
func (s *engine) resolveReservationLocked(id types.ReservationID) {
	r, ok := s.reservations[id]
	if !ok {
		return
	}
	for _, coinID := range r.coinIDs {
		delete(s.reservedBy, coinID)
	}
	delete(s.reservations, id)
}

// ExpireCoins implements Store. It is never journaled: its effects are
// either later confirmed by a journaled AddNewCoins call, or — if the
// process crashes first — harmlessly redone by the sweeper after
// restart, since reservation deadlines are absolute timestamps that
// replay reconstructs unchanged.
func (s *engine) ExpireCoins(ctx context.Context) ([]types.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var expiredIDs []types.ObjectID
	for resID, r := range s.reservations {
		if r.status != statusActive || now.Before(r.deadline) {
			continue
		}
		for _, coinID := range r.coinIDs {
			delete(s.reservedBy, coinID)
			expiredIDs = append(expiredIDs, coinID)
		}
		delete(s.reservations, resID)
	}
	return expiredIDs, nil
}

// AvailableCount implements Store.
func (s *engine) AvailableCount(ctx context.Context, sponsor types.Address) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.available[sponsor]
	if !ok {
		return 0, nil
	}
	return set.Cardinality(), nil
}
