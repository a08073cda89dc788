package gaspool

import (
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/gaspool-io/gaspool/types"
)

// Package-scope metric registrations, in the teacher's own style of
// declaring metrics as package-level vars next to the code that
// updates them (compare miner/worker.go's txConditionalRejectedCounter
// et al). These back the Observability surface contract in spec
// section 6.
var (
	reserveLatencyTimer        = metrics.NewRegisteredTimer("gaspool/reserve/latency", nil)
	reservedCoinCountHistogram = metrics.NewRegisteredHistogram(
		"gaspool/reserve/coinCount", nil, metrics.NewExpDecaySample(1028, 0.015))
	signingLatencyTimer   = metrics.NewRegisteredTimer("gaspool/execute/signingLatency", nil)
	executionLatencyTimer = metrics.NewRegisteredTimer("gaspool/execute/executionLatency", nil)
)

// dailyGasUsageGauge returns (registering if needed) the daily gas
// usage gauge for sponsor. go-ethereum's metrics package has no native
// per-label gauge, so sponsors are distinguished by folding the address
// into the metric name, the same trick the teacher's fork-specific
// metrics (e.g. num_smashed_gas_coins) achieve via label vectors in the
// Rust original — translated here to geth metrics' name-based registry.
func dailyGasUsageGauge(sponsor types.Address) metrics.GaugeFloat64 {
	return metrics.GetOrRegisterGaugeFloat64("gaspool/dailyGasUsage/"+sponsor.String(), nil)
}

// smashedCoinsCounter returns (registering if needed) the smashed-coin
// counter for sponsor.
func smashedCoinsCounter(sponsor types.Address) metrics.Counter {
	return metrics.GetOrRegisterCounter("gaspool/smashedCoins/"+sponsor.String(), nil)
}
