package store

import (
	"time"

	"github.com/gaspool-io/gaspool/types"
)

type eventKind uint8

const (
	eventSeed eventKind = iota + 1
	eventReserve
	eventReadyForExecution
	eventAddNewCoins
)

// event is the durable record of a single engine mutation. PebbleStore
// appends one of these, gob-encoded, per successful call and replays
// them in order to rebuild in-memory state after a restart.
type event struct {
	Kind          eventKind
	ReservationID types.ReservationID
	Sponsor       types.Address
	CoinIDs       []types.ObjectID
	Deadline      time.Time
	Coins         []types.GasCoin
}

// replay applies a previously journaled event to engine state without
// re-invoking the journal. Used only at startup.
func (s *engine) replay(ev event) {
	switch ev.Kind {
	case eventSeed:
		s.applySeed(ev.Coins)
	case eventReserve:
		set := s.availableSetLocked(ev.Sponsor)
		for _, id := range ev.CoinIDs {
			set.Remove(id)
			s.reservedBy[id] = ev.ReservationID
		}
		s.reservations[ev.ReservationID] = &reservation{
			sponsor:  ev.Sponsor,
			coinIDs:  ev.CoinIDs,
			status:   statusActive,
			deadline: ev.Deadline,
		}
		if uint64(ev.ReservationID) > s.nextReservationID.Load() {
			s.nextReservationID.Store(uint64(ev.ReservationID))
		}
	case eventReadyForExecution:
		if r, ok := s.reservations[ev.ReservationID]; ok {
			r.status = statusInFlight
		}
	case eventAddNewCoins:
		s.applyAddNewCoins(ev.Coins)
	}
}
