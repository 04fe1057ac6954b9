package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameDateCanTransitionTo(t *testing.T) {
	tests := []struct {
		from GameDateStatus
		to   GameDateStatus
		ok   bool
	}{
		{GameDateStatusPending, GameDateStatusCreated, true},
		{GameDateStatusPending, GameDateStatusCancelled, true},
		{GameDateStatusPending, GameDateStatusInProgress, false},
		{GameDateStatusPending, GameDateStatusCompleted, false},

		{GameDateStatusCreated, GameDateStatusInProgress, true},
		{GameDateStatusCreated, GameDateStatusCancelled, true},
		{GameDateStatusCreated, GameDateStatusCompleted, false},
		{GameDateStatusCreated, GameDateStatusPending, false},

		{GameDateStatusInProgress, GameDateStatusCompleted, true},
		{GameDateStatusInProgress, GameDateStatusCancelled, true},
		{GameDateStatusInProgress, GameDateStatusCreated, false},

		// Terminal states only leave via administrative reset.
		{GameDateStatusCompleted, GameDateStatusCancelled, false},
		{GameDateStatusCompleted, GameDateStatusInProgress, false},
		{GameDateStatusCancelled, GameDateStatusCreated, false},
		{GameDateStatusCancelled, GameDateStatusInProgress, false},
	}

	for _, tt := range tests {
		got := GameDate{Status: tt.from}.CanTransitionTo(tt.to)
		assert.Equal(t, tt.ok, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestBlindLevelIsInfinite(t *testing.T) {
	assert.True(t, BlindLevel{DurationMinutes: 0}.IsInfinite())
	assert.False(t, BlindLevel{DurationMinutes: 12}.IsInfinite())
}
