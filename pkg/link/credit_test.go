package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreditConsume(t *testing.T) {
	testCases := []struct {
		name       string
		units      int
		n          int
		ok         bool
		unitsAfter int
	}{
		{"empty rejects", 0, 100, false, 0},
		{"exact fit", 3, 192, true, 0},
		{"rounds up", 3, 100, true, 1},
		{"one byte one unit", 5, 1, true, 4},
		{"zero bytes free", 2, 0, true, 2},
		{"not enough", 1, 65, false, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Credit{units: tc.units}
			require.Equal(t, tc.ok, c.Consume(tc.n))
			require.Equal(t, tc.unitsAfter, c.Units())
		})
	}
}

func TestCreditRefresh(t *testing.T) {
	var c Credit
	c.Refresh(7)
	require.Equal(t, 7, c.Units())
	c.Refresh(2)
	require.Equal(t, 2, c.Units())
	c.Refresh(0)
	require.Equal(t, 0, c.Units())
	c.Refresh(-1)
	require.Equal(t, 0, c.Units())
}

func TestCreditNeverNegative(t *testing.T) {
	c := Credit{units: 10}
	// 150 bytes cost 3 units: 10 -> 7 -> 4 -> 1
	for i := 0; i < 3; i++ {
		require.True(t, c.Consume(150))
		require.GreaterOrEqual(t, c.Units(), 0)
	}
	require.Equal(t, 1, c.Units())

	// rejections leave the remaining unit untouched
	require.False(t, c.Consume(150))
	require.Equal(t, 1, c.Units())
	require.False(t, c.Consume(65))
	require.Equal(t, 1, c.Units())

	// the last unit is still spendable, then everything rejects
	require.True(t, c.Consume(64))
	require.Equal(t, 0, c.Units())
	require.False(t, c.Consume(1))
	require.Equal(t, 0, c.Units())
}
