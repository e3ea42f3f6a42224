package workers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	out, err := Map(context.Background(), 3, items, func(_ context.Context, _ int, v int) int {
		// later items finish first
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range items {
		if out[i] != v*10 {
			t.Errorf("out[%d] = %d, want %d", i, out[i], v*10)
		}
	}
}

func TestMapEmpty(t *testing.T) {
	out, err := Map(context.Background(), 2, []string{}, func(_ context.Context, _ int, s string) string { return s })
	if err != nil || len(out) != 0 {
		t.Errorf("expected empty result, got %v %v", out, err)
	}
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Map(ctx, 2, []int{1, 2, 3}, func(_ context.Context, _ int, v int) int { return v })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []Span
	}{
		{0, 4, nil},
		{3, 5, []Span{{0, 1}, {1, 2}, {2, 3}}},
		{7, 3, []Span{{0, 3}, {3, 5}, {5, 7}}},
		{4, 0, []Span{{0, 4}}},
	}
	for _, tt := range tests {
		got := Split(tt.n, tt.parts)
		if len(got) != len(tt.want) {
			t.Errorf("Split(%d,%d) = %v, want %v", tt.n, tt.parts, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Split(%d,%d)[%d] = %v, want %v", tt.n, tt.parts, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLimit(t *testing.T) {
	if Limit(3) != 3 {
		t.Error("positive limit should pass through")
	}
	if Limit(0) < 1 {
		t.Error("zero limit should fall back to CPU count")
	}
}
