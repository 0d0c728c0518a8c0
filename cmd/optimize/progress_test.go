package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m00s"},
		{-time.Second, "0m00s"},
		{95 * time.Second, "1m35s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		if got := clock(tt.d); got != tt.want {
			t.Errorf("clock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestProgressKeepsBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	specs := []ParamSpec{{Name: "a"}, {Name: "b"}}
	p, err := newProgress(path, specs, 3)
	if err != nil {
		t.Fatal(err)
	}
	p.record(-0.2, 0.2, []float64{1, 2})
	p.record(-0.5, 0.5, []float64{3, 4})
	p.record(-0.1, 0.1, []float64{5, 6})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	if p.best != -0.5 || p.bestParams[0] != 3 || p.bestParams[1] != 4 {
		t.Errorf("best = %v %v, want -0.5 [3 4]", p.best, p.bestParams)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows", len(lines))
	}
	if lines[0] != "eval,fitness,quality,a,b" {
		t.Errorf("header = %q", lines[0])
	}
}
