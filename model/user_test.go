package model

import "testing"

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{2000, 6},
		{3500, 7},
		{5500, 8},
		{8000, 9},
		{12000, 10},
		{1000000, 10},
	}

	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.level {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, got, tc.level)
		}
	}
}

func TestIsActive(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{UserStatusPending, false},
		{UserStatusActive, true},
		{UserStatusRejected, false},
	}

	for _, tc := range cases {
		u := User{Status: tc.status}
		if got := u.IsActive(); got != tc.want {
			t.Errorf("IsActive() with status %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}
