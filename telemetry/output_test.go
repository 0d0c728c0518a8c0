package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/railfield/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("empty dir should disable output, got %v, %v", om, err)
	}
	if err := om.WriteQuality(QualityEvent{}); err != nil {
		t.Errorf("nil manager write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager close: %v", err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	events := []QualityEvent{
		{Time: 2, Kind: KindProfile, From: "high", To: "medium", FPS: 41, Budget: 6000},
		{Time: 4, Kind: KindFallback, Renderer: "software", Vendor: "railfield", Reason: "position pass"},
	}
	for _, e := range events {
		if err := om.WriteQuality(e); err != nil {
			t.Fatalf("WriteQuality: %v", err)
		}
	}
	if err := om.WriteStats(WindowStats{WindowEnd: 5, Mode: "gpu", Spawned: 40}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "quality.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "time,kind"); n != 1 {
		t.Errorf("header written %d times", n)
	}
	var back []QualityEvent
	if err := gocsv.UnmarshalBytes(data, &back); err != nil {
		t.Fatalf("unmarshal quality.csv: %v", err)
	}
	if len(back) != 2 || back[0].To != "medium" || back[1].Kind != KindFallback {
		t.Errorf("round trip = %+v", back)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}
