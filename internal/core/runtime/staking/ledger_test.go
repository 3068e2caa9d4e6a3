package staking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_ConsolidateUnlocked(t *testing.T) {
	l := &Ledger{
		Total:     600,
		Active:    100,
		Unlocking: []UnlockChunk{{Value: 200, Era: 2}, {Value: 300, Era: 5}},
	}

	assert.Zero(t, l.consolidateUnlocked(1))
	assert.Equal(t, uint64(200), l.consolidateUnlocked(2))
	assert.Equal(t, []UnlockChunk{{Value: 300, Era: 5}}, l.Unlocking)
	assert.Equal(t, uint64(400), l.Total)
}

func TestLedger_RebondFromNewestChunk(t *testing.T) {
	l := &Ledger{
		Total:     600,
		Active:    100,
		Unlocking: []UnlockChunk{{Value: 200, Era: 2}, {Value: 300, Era: 5}},
	}

	got := l.rebond(350)

	assert.Equal(t, uint64(350), got)
	assert.Equal(t, uint64(450), l.Active)
	assert.Equal(t, []UnlockChunk{{Value: 150, Era: 2}}, l.Unlocking)
	assert.Equal(t, uint64(600), l.Total)
}

func TestLedger_RebondCapsAtUnlocking(t *testing.T) {
	l := &Ledger{Total: 300, Unlocking: []UnlockChunk{{Value: 300, Era: 1}}}

	got := l.rebond(1_000)

	assert.Equal(t, uint64(300), got)
	assert.Empty(t, l.Unlocking)
	assert.Equal(t, uint64(300), l.Active)
}
