package core

import (
	"net/url"
	"testing"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"", 20, 0, false},
		{"limit=5&offset=10", 5, 10, false},
		{"limit=500", 100, 0, false},   // clamped to max
		{"limit=abc&offset=xyz", 20, 0, false}, // non-numeric falls back
		{"limit=0", 20, 0, false},      // non-positive falls back to default
		{"limit=-1", 0, 0, true},
		{"offset=-3", 0, 0, true},
	}
	for _, c := range cases {
		values, _ := url.ParseQuery(c.query)
		limit, offset, err := parsePagination(values, 20, 100)
		if c.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", c.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", c.query, err)
			continue
		}
		if limit != c.wantLimit || offset != c.wantOffset {
			t.Errorf("%q: got %d/%d, want %d/%d", c.query, limit, offset, c.wantLimit, c.wantOffset)
		}
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		n, limit, offset, from, to int
	}{
		{10, 5, 0, 0, 5},
		{10, 5, 8, 8, 10},
		{10, 5, 20, 10, 10},
		{0, 5, 0, 0, 0},
	}
	for _, c := range cases {
		from, to := window(c.n, c.limit, c.offset)
		if from != c.from || to != c.to {
			t.Errorf("window(%d,%d,%d) = %d..%d, want %d..%d", c.n, c.limit, c.offset, from, to, c.from, c.to)
		}
	}
}
