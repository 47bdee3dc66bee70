package db

import "testing"

func TestPoolMaxConnsFollowsWorkerCount(t *testing.T) {
	cases := []struct {
		workers int
		want    int32
	}{
		{0, 4},
		{1, 4},
		{2, 4},
		{3, 5},
		{8, 10},
	}
	for _, tc := range cases {
		if got := poolMaxConns(tc.workers); got != tc.want {
			t.Errorf("poolMaxConns(%d) = %d, expected %d", tc.workers, got, tc.want)
		}
	}
}
