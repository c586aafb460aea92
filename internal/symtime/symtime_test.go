package symtime_test

import (
	"testing"
	"time"

	"github.com/joeycumines/detsim/internal/symtime"
	"github.com/stretchr/testify/require"
)

func TestSegment_Shift(t *testing.T) {
	s := symtime.NewSegment(time.Second, 2*time.Second)
	shifted := s.Shift(500 * time.Millisecond)
	require.Equal(t, 1500*time.Millisecond, shifted.From)
	require.Equal(t, 2500*time.Millisecond, shifted.To)
}

func TestSegment_ShiftRange(t *testing.T) {
	s := symtime.NewSegment(time.Second, 2*time.Second)
	shifted := s.ShiftRange(time.Second, 3*time.Second)
	require.Equal(t, 2*time.Second, shifted.From)
	require.Equal(t, 5*time.Second, shifted.To)
}

func TestSegment_Less(t *testing.T) {
	require.True(t, symtime.AtPoint(time.Second).Less(symtime.AtPoint(2*time.Second)))
	require.True(t, symtime.NewSegment(time.Second, time.Second).Less(symtime.NewSegment(time.Second, 2*time.Second)))
}

func TestNewSegment_PanicsOnInverted(t *testing.T) {
	require.Panics(t, func() {
		symtime.NewSegment(2*time.Second, time.Second)
	})
}
