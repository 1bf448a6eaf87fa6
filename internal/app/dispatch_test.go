package app

import "testing"

func TestHalveOrDouble(t *testing.T) {
	cases := []struct {
		cur   int
		up    bool
		auto  int
		limit int
		want  int
	}{
		{0, true, 64, 0, 64},
		{0, false, 64, 0, 32},
		{0, false, 1, 0, 1},
		{16, true, 64, 0, 32},
		{16, false, 64, 0, 8},
		{1, false, 64, 0, 0},
		{1024, true, 64, 1024, 1024},
		{512, true, 64, 1024, 1024},
		{0, true, 64, 32, 32},
		{2048, false, 64, 0, 1024},
	}
	for _, tc := range cases {
		if got := halveOrDouble(tc.cur, tc.up, tc.auto, tc.limit); got != tc.want {
			t.Fatalf("halveOrDouble(%d, %v, %d, %d) = %d, want %d", tc.cur, tc.up, tc.auto, tc.limit, got, tc.want)
		}
	}
}
