package views

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"eth0", 10, "eth0"},
		{"enp3s0f1", 6, "enp..."},
		{"enp3s0f1", 3, "enp"},
		{"eth0", 0, ""},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.max); got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestPadding(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padLeft("ab", 4); got != "  ab" {
		t.Errorf("padLeft = %q", got)
	}
	if got := padLeft("abcdef", 3); got != "abc" {
		t.Errorf("padLeft overflow = %q", got)
	}
}

func TestScrollWindow(t *testing.T) {
	cases := []struct {
		cursor, n, height int
		start, end        int
	}{
		{0, 3, 10, 0, 3},
		{0, 20, 5, 0, 5},
		{7, 20, 5, 3, 8},
		{19, 20, 5, 15, 20},
		{0, 0, 5, 0, 0},
	}
	for _, c := range cases {
		s, e := scrollWindow(c.cursor, c.n, c.height)
		if s != c.start || e != c.end {
			t.Errorf("scrollWindow(%d, %d, %d) = [%d, %d), want [%d, %d)",
				c.cursor, c.n, c.height, s, e, c.start, c.end)
		}
	}
}
