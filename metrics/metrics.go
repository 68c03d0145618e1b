// Package metrics wraps github.com/rcrowley/go-metrics as execution and
// commit instrumentation; the executor reports into it through the
// vm.Metrics hook, the way klaytn's work/worker.go registers miner counters and
// timers against its own metrics registry.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Registry holds the counters a block's execution reports into. One
// Registry is shared across every block a process executes; per-block
// values are observed as deltas against the running totals.
type Registry struct {
	r gometrics.Registry

	executedTxns  gometrics.Counter
	gasUsed       gometrics.Counter
	blocksApplied gometrics.Counter
	executeTimer  gometrics.Timer
}

// NewRegistry builds a fresh registry and registers its counters/timer
// under the names a dashboard would group by.
func NewRegistry() *Registry {
	r := gometrics.NewRegistry()
	m := &Registry{
		r:             r,
		executedTxns:  gometrics.NewCounter(),
		gasUsed:       gometrics.NewCounter(),
		blocksApplied: gometrics.NewCounter(),
		executeTimer:  gometrics.NewTimer(),
	}
	r.Register("chain/executed_txns", m.executedTxns)
	r.Register("chain/gas_used", m.gasUsed)
	r.Register("chain/blocks_applied", m.blocksApplied)
	r.Register("chain/execute_latency", m.executeTimer)
	return m
}

// ObserveExecutedTxns implements vm.Metrics.
func (m *Registry) ObserveExecutedTxns(n int) {
	m.executedTxns.Inc(int64(n))
}

// ObserveGasUsed implements vm.Metrics.
func (m *Registry) ObserveGasUsed(n uint64) {
	m.gasUsed.Inc(int64(n))
}

// ObserveBlockApplied records one successful apply() and how long its
// execution took — a block-level counterpart to the per-transaction
// counters the executor's vm.Metrics hook reports. It is not part of
// vm.Metrics; nothing in the executor or chain packages calls it.
func (m *Registry) ObserveBlockApplied(elapsed time.Duration) {
	m.blocksApplied.Inc(1)
	m.executeTimer.Update(elapsed)
}

// Snapshot is a point-in-time read of every counter, useful for tests and
// for a /debug/metrics-style HTTP handler built on top of this package.
type Snapshot struct {
	ExecutedTxns  int64
	GasUsed       int64
	BlocksApplied int64
}

// Snapshot reads the current counter values.
func (m *Registry) Snapshot() Snapshot {
	return Snapshot{
		ExecutedTxns:  m.executedTxns.Count(),
		GasUsed:       m.gasUsed.Count(),
		BlocksApplied: m.blocksApplied.Count(),
	}
}

// Underlying exposes the raw go-metrics registry for anything that wants
// to export it (e.g. an expvar or Prometheus bridge) without this package
// needing to know about export formats — out of scope per spec.md's RPC
// exclusion.
func (m *Registry) Underlying() gometrics.Registry {
	return m.r
}
