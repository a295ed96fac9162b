package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateRank(t *testing.T) {
	cases := []struct {
		xp   int64
		want string
	}{
		{0, "F"},
		{199, "F"},
		{200, "E"},
		{399, "E"},
		{400, "D"},
		{700, "C"},
		{1000, "B"},
		{1500, "A"},
		{2000, "S"},
		{2999, "S"},
		{3000, "SS"},
		{4999, "SS"},
		{5000, "SSS"},
		{100000, "SSS"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CalculateRank(tc.xp), "xp=%d", tc.xp)
	}
}

func TestDemoteRank(t *testing.T) {
	require.Equal(t, "F", DemoteRank("F"))
	require.Equal(t, "F", DemoteRank("E"))
	require.Equal(t, "E", DemoteRank("D"))
	require.Equal(t, "SS", DemoteRank("SSS"))
	require.Equal(t, "F", DemoteRank("not-a-rank"))
}
