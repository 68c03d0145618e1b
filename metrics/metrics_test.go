package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starcoinorg/stargo-chain/vm"
)

func TestRegistry_ImplementsVMMetrics(t *testing.T) {
	var _ vm.Metrics = NewRegistry()
}

func TestRegistry_ObserveAccumulates(t *testing.T) {
	r := NewRegistry()
	r.ObserveExecutedTxns(3)
	r.ObserveGasUsed(30)
	r.ObserveExecutedTxns(2)
	r.ObserveGasUsed(5)
	r.ObserveBlockApplied(10 * time.Millisecond)

	snap := r.Snapshot()
	assert.Equal(t, int64(5), snap.ExecutedTxns)
	assert.Equal(t, int64(35), snap.GasUsed)
	assert.Equal(t, int64(1), snap.BlocksApplied)
}
