package apqos

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepConfigs(t *testing.T) {
	rates := RateSweep(DefaultRates, DefaultCapacity)
	assert.Equal(t, []RunConfig{{11, 100}, {6, 100}, {30, 100}, {54, 100}}, rates)

	caps := CapacitySweep(DefaultRate, 3)
	require.Len(t, caps, 4)
	for i, cfg := range caps {
		assert.Equal(t, i, cfg.BufferCapacity)
		assert.Equal(t, 11.0, cfg.OutputRateMbps)
	}
	assert.Empty(t, CapacitySweep(DefaultRate, -1))
}

func TestSweepWorkersMatchSequential(t *testing.T) {
	recs := overloadTrace(t)
	cfgs := append(RateSweep(DefaultRates, 30), CapacitySweep(DefaultRate, 5)...)

	seq, err := Sweep(SliceFactory(recs), cfgs, SweepOptions{})
	require.NoError(t, err)
	par, err := Sweep(SliceFactory(recs), cfgs, SweepOptions{Workers: 4})
	require.NoError(t, err)

	require.Len(t, seq, len(cfgs))
	assert.Equal(t, seq, par)
	for idx, row := range par {
		assert.Equal(t, idx, row.Index)
		assert.Equal(t, cfgs[idx], row.Config)
		require.NotNil(t, row.Result)
		assert.True(t, row.Result.Metrics.Conserved())
	}
	// capacity 0 loses everything
	assert.Equal(t, 100.0, par[4].Result.LossPct)
}

func TestSweepMissingTrace(t *testing.T) {
	open := TraceFactory(filepath.Join(t.TempDir(), "absent.txt"))
	rows, err := Sweep(open, RateSweep([]float64{11, 6}, 10), SweepOptions{Workers: 2})

	assert.ErrorIs(t, err, ErrTraceOpen)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Nil(t, row.Result)
		assert.ErrorIs(t, row.Err, ErrTraceOpen)
		assert.NotEmpty(t, row.Failure)
	}
}

func TestSweepHorizonKeepsPartialResult(t *testing.T) {
	recs := []PacketRecord{{0, 1000}}
	rows, err := Sweep(SliceFactory(recs), RateSweep([]float64{11}, 10),
		SweepOptions{Run: Options{MaxTicks: 5}})

	assert.ErrorIs(t, err, ErrHorizon)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Result)
	assert.True(t, rows[0].Result.Truncated)
	assert.Equal(t, 1, rows[0].Result.Metrics.TotalPkts)
}

func TestSweepRecorder(t *testing.T) {
	recs := []PacketRecord{{0, 10}, {0, 10}, {0, 10}}
	rc := CreateRecorder("sweep", true)
	c := new(collect)
	rows, err := Sweep(SliceFactory(recs), CapacitySweep(DefaultRate, 2),
		SweepOptions{Recorder: rc, Run: Options{Observer: c}})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// every packet is buffered or dropped, and each buffered one is delivered
	assert.Equal(t, 3, rc.Len(0))
	assert.Equal(t, 3+1, rc.Len(1))
	assert.Equal(t, 3+2, rc.Len(2))
	assert.Len(t, c.obs, 3+4+5)
	assert.Equal(t, RunConfig{OutputRateMbps: DefaultRate, BufferCapacity: 2}, rc.RunByID[2])
}
