package barrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEmptyBeginFiresSynchronously(t *testing.T) {
	b := New()
	fired := 0
	b.OnComplete(func() { fired++ })
	b.Begin(nil)
	assert.True(t, b.IsComplete())
	assert.Equal(t, 1, fired)
}

func TestDuplicateCompletion(t *testing.T) {
	b := New()
	fired := 0
	b.OnComplete(func() { fired++ })
	b.Begin([]UnitID{"A", "B"})

	b.UnitCompleted("A")
	b.UnitCompleted("A")
	assert.Equal(t, 0, fired)
	assert.False(t, b.IsComplete())
	assert.Equal(t, []UnitID{"B"}, b.Pending())

	b.UnitCompleted("B")
	assert.Equal(t, 1, fired)
	b.UnitCompleted("B")
	b.UnitCompleted("A")
	assert.Equal(t, 1, fired)
}

func TestUnknownUnitIgnored(t *testing.T) {
	b := New()
	b.Begin([]UnitID{"A"})
	b.UnitCompleted("Z")
	assert.False(t, b.IsComplete())
	b.UnitCompleted("A")
	assert.True(t, b.IsComplete())
}

func TestLateSubscriberReplay(t *testing.T) {
	b := New()
	b.Begin([]UnitID{"A"})
	b.UnitCompleted("A")

	late := 0
	b.OnComplete(func() { late++ })
	assert.Equal(t, 1, late)

	b.Begin([]UnitID{"B"})
	assert.Equal(t, 1, late)
	b.UnitCompleted("B")
	assert.Equal(t, 2, late)
}

func TestResetDoesNotFire(t *testing.T) {
	b := New()
	fired := 0
	b.OnComplete(func() { fired++ })
	b.Begin([]UnitID{"A"})
	b.Reset()
	assert.False(t, b.IsComplete())
	assert.Empty(t, b.Pending())
	b.UnitCompleted("A")
	assert.Equal(t, 0, fired)
}

func TestPropertyFiresExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,4}`), rapid.ID[string]).Draw(t, "units")
		completions := rapid.SliceOf(rapid.SampledFrom(append(units, "unknown"))).Draw(t, "completions")

		b := New()
		fired := 0
		b.OnComplete(func() { fired++ })
		ids := make([]UnitID, len(units))
		for i, u := range units {
			ids[i] = UnitID(u)
		}
		b.Begin(ids)

		done := map[string]bool{}
		for _, c := range completions {
			b.UnitCompleted(UnitID(c))
			if c != "unknown" {
				done[c] = true
			}
		}

		if len(done) == len(units) {
			assert.Equal(t, 1, fired)
			assert.True(t, b.IsComplete())
		} else {
			assert.Equal(t, 0, fired)
			assert.Len(t, b.Pending(), len(units)-len(done))
		}
	})
}
