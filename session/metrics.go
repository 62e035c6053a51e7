package session

import "sync/atomic"

// Metrics contains atomic metrics for the session loop.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// EstablishCount indicates the total number of successfully established sessions.
	EstablishCount atomic.Uint64
	// EstablishRetryGauge indicates the number of consecutive failed establish attempts.
	EstablishRetryGauge atomic.Uint32
	// ExchangeCount indicates the total number of completed exchange round trips.
	ExchangeCount atomic.Uint64
	// ExchangeErrCount indicates the total number of exchange failures, timeouts
	// and protocol violations included.
	ExchangeErrCount atomic.Uint64
	// RxBytes indicates the total number of bytes received across all sessions.
	RxBytes atomic.Uint64
	// TxBytes indicates the total number of bytes sent across all sessions.
	TxBytes atomic.Uint64
}
