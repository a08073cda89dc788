package gaspool

import "errors"

// Error kinds surfaced to callers of the orchestrator (spec section 7).
// Each wraps a lower-level error from its originating component where
// one exists, so callers can match with errors.Is against either the
// orchestrator-level kind or the underlying cause.
var (
	// ErrUnknownSponsor means tx_data.gas_data.owner is not a sponsor
	// address this service's signer controls.
	ErrUnknownSponsor = errors.New("gaspool: sponsor address is not registered")

	// ErrGasCoinMisuse means the transaction references the gas-coin
	// pseudo-argument somewhere other than as the implicit gas payment.
	ErrGasCoinMisuse = errors.New("gaspool: gas coin can only be used to pay gas")

	// ErrReservationExpired means the reservation was already expired
	// by the sweeper or already consumed by a concurrent execute call.
	ErrReservationExpired = errors.New("gaspool: reservation already expired or consumed")

	// ErrSignerFailed means every signing attempt failed.
	ErrSignerFailed = errors.New("gaspool: sponsor signing failed")

	// ErrExecutionFailed means submission to the chain failed after
	// its attempt budget was spent. The reservation's coins have
	// already been reconciled and returned to the pool by the time
	// this error reaches the caller.
	ErrExecutionFailed = errors.New("gaspool: transaction submission failed")
)
