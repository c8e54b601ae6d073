package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameTime_AdvanceScalesBySpeed(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 60)
	require.NoError(t, err)

	g.Advance(time.Second)
	assert.Equal(t, DefaultStart.Add(time.Minute), g.Now())

	g.Advance(-time.Second)
	assert.Equal(t, DefaultStart.Add(time.Minute), g.Now())
}

func TestGameTime_PauseResume(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 1)
	require.NoError(t, err)

	g.Pause()
	assert.True(t, g.Paused())
	g.Advance(time.Hour)
	assert.Equal(t, DefaultStart, g.Now())

	g.Resume()
	g.Advance(time.Hour)
	assert.Equal(t, DefaultStart.Add(time.Hour), g.Now())
}

func TestGameTime_SetSpeedRejectsNegative(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 1)
	require.NoError(t, err)

	require.ErrorIs(t, g.SetSpeed(-1), ErrNegativeSpeed)
	assert.Equal(t, 1.0, g.Speed())
	require.NoError(t, g.SetSpeed(0))
	g.Advance(time.Hour)
	assert.Equal(t, DefaultStart, g.Now())

	_, err = NewGameTime(DefaultStart, -2)
	require.ErrorIs(t, err, ErrNegativeSpeed)
}

func TestGameTime_Adjustments(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 1)
	require.NoError(t, err)

	g.AddHours(5)
	assert.Equal(t, 12, g.Now().Hour())
	g.AddDays(2)
	assert.Equal(t, 3, g.Now().Day())

	g.SetTime(21, 30, 0)
	assert.Equal(t, time.Date(2024, time.January, 3, 21, 30, 0, 0, time.UTC), g.Now())
}

func TestGameTime_NightAndHours(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 1)
	require.NoError(t, err)

	for _, tc := range []struct {
		hour  int
		night bool
		work  bool
	}{
		{0, true, false},
		{5, true, false},
		{6, false, false},
		{9, false, true},
		{16, false, true},
		{17, false, false},
		{19, false, false},
		{20, true, false},
		{23, true, false},
	} {
		g.SetTime(tc.hour, 0, 0)
		assert.Equal(t, tc.night, g.IsNight(), "hour %d", tc.hour)
		assert.Equal(t, tc.work, g.IsBetweenHours(9, 17), "hour %d", tc.hour)
	}
}

func TestGameTime_ConcurrentReaders(t *testing.T) {
	g, err := NewGameTime(DefaultStart, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = g.String()
				_ = g.IsNight()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		g.Advance(time.Millisecond)
	}
	wg.Wait()
	assert.Equal(t, DefaultStart.Add(time.Second), g.Now())
}
