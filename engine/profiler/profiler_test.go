package profiler

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestTickReportsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	logger.SetSink(&out)
	logger.SetLevel(logger.Info)
	t.Cleanup(func() {
		logger.SetLevel(logger.Notice)
		logger.SetSink(os.Stdout)
	})

	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second))

	for i := range 9 {
		clock.t = clock.t.Add(100 * time.Millisecond)
		_, ok := p.Tick(uint32(i + 1))
		require.False(t, ok, "tick %d", i)
	}

	clock.t = clock.t.Add(100 * time.Millisecond)
	st, ok := p.Tick(10)
	require.True(t, ok)
	assert.InDelta(t, 10.0, st.FPS, 1e-9)
	assert.Equal(t, uint32(10), st.Samples)
	assert.Positive(t, st.SysMB)
	assert.Contains(t, out.String(), "Samples: 10")

	clock.t = clock.t.Add(100 * time.Millisecond)
	_, ok = p.Tick(11)
	assert.False(t, ok, "counter restarts after a report")
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(-time.Second))
	assert.Equal(t, time.Second, p.updateInterval)
}
