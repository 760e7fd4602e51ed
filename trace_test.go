package apqos

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func recordRun(t *testing.T, rc *Recorder) {
	t.Helper()
	cfg := RunConfig{OutputRateMbps: oneBytePerTick, BufferCapacity: 1}
	obs := rc.ForRun(0, cfg)
	require.NotNil(t, obs)
	runRecs(t, cfg, []PacketRecord{{0, 2}, {0, 2}}, Options{Observer: obs})
}

func TestRecorderContents(t *testing.T) {
	rc := CreateRecorder("contents", true)
	assert.True(t, rc.Active())
	recordRun(t, rc)

	insts := rc.Traces[0]
	require.Len(t, insts, 3)
	assert.Equal(t, "BUFFERED", insts[0].Op)
	assert.Equal(t, "DROPPED", insts[1].Op)
	assert.Equal(t, 1, insts[1].PcktID)
	assert.Equal(t, 1, insts[1].BufferLen)
	assert.Equal(t, "DELIVERED", insts[2].Op)
	assert.Equal(t, int64(1), insts[2].Priority)
	assert.Equal(t, vrtime.SecondsToTicks(TimeUnit), insts[2].Ticks)
	assert.Equal(t, float32(2), insts[2].Budget)

	assert.Panics(t, func() { rc.ForRun(0, RunConfig{}) })
}

func TestRecorderWriteToFile(t *testing.T) {
	rc := CreateRecorder("write", true)
	recordRun(t, rc)
	dir := t.TempDir()

	yml := filepath.Join(dir, "obs.yaml")
	ok, err := rc.WriteToFile(yml)
	require.NoError(t, err)
	assert.True(t, ok)
	bytes, err := os.ReadFile(yml)
	require.NoError(t, err)
	back := new(Recorder)
	require.NoError(t, yaml.Unmarshal(bytes, back))
	assert.Equal(t, "write", back.ExpName)
	assert.Len(t, back.Traces[0], 3)

	js := filepath.Join(dir, "obs.json")
	_, err = rc.WriteToFile(js)
	require.NoError(t, err)
	bytes, err = os.ReadFile(js)
	require.NoError(t, err)
	back = new(Recorder)
	require.NoError(t, json.Unmarshal(bytes, back))
	assert.Len(t, back.Traces[0], 3)

	_, err = rc.WriteToFile(filepath.Join(dir, "obs.txt"))
	assert.ErrorIs(t, err, ErrFileFormat)
}

func TestInactiveRecorder(t *testing.T) {
	rc := CreateRecorder("off", false)
	assert.Nil(t, rc.ForRun(0, RunConfig{}))
	ok, err := rc.WriteToFile(filepath.Join(t.TempDir(), "obs.yaml"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestObservationStampFollowsClock(t *testing.T) {
	c := new(collect)
	runRecs(t, RunConfig{OutputRateMbps: oneBytePerTick, BufferCapacity: 10},
		[]PacketRecord{{ArrivalTime: 0.0, SizeBytes: 3}}, Options{Observer: c})

	require.Len(t, c.obs, 2)
	for _, obs := range c.obs {
		assert.Equal(t, obs.Tick, obs.Stamp.Pri())
		assert.Equal(t, vrtime.SecondsToTicks(obs.Time), obs.Stamp.Ticks())
	}
}
