package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ribbonBot/internal/domain"
)

func TestKlinesCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "klines.csv")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := []*domain.Kline{
		{
			OpenTime:  start,
			CloseTime: start.Add(5 * time.Minute),
			Symbol:    "ETHUSDT",
			Interval:  "5m",
			Open:      2000.5,
			High:      2010.25,
			Low:       1995.75,
			Close:     2005,
			Volume:    1234.5678,
			IsFinal:   true,
		},
		{
			OpenTime:  start.Add(5 * time.Minute),
			CloseTime: start.Add(10 * time.Minute),
			Symbol:    "ETHUSDT",
			Interval:  "5m",
			Open:      2005,
			High:      2008,
			Low:       2001,
			Close:     2003.125,
			Volume:    987.25,
			IsFinal:   true,
		},
	}

	if err := WriteKlinesToCSV(klines, path); err != nil {
		t.Fatalf("WriteKlinesToCSV: %v", err)
	}

	got, err := ReadKlinesFromCSV(path)
	if err != nil {
		t.Fatalf("ReadKlinesFromCSV: %v", err)
	}
	if len(got) != len(klines) {
		t.Fatalf("Expected %d klines, got %d", len(klines), len(got))
	}

	for i, k := range klines {
		g := got[i]
		if !g.OpenTime.Equal(k.OpenTime) || !g.CloseTime.Equal(k.CloseTime) {
			t.Errorf("Kline %d: time mismatch %s/%s", i, g.OpenTime, g.CloseTime)
		}
		if g.Symbol != k.Symbol || g.Interval != k.Interval {
			t.Errorf("Kline %d: symbol/interval mismatch %s %s", i, g.Symbol, g.Interval)
		}
		if g.Open != k.Open || g.High != k.High || g.Low != k.Low || g.Close != k.Close || g.Volume != k.Volume {
			t.Errorf("Kline %d: price/volume mismatch %+v", i, g)
		}
		if !g.IsFinal {
			t.Errorf("Kline %d: expected IsFinal after read", i)
		}
	}
}

func TestReadKlinesFromCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadKlinesFromCSV(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("Expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadKlinesFromCSV(empty); err == nil {
		t.Error("Expected error for empty file")
	}

	bad := filepath.Join(dir, "bad.csv")
	content := "open_time,close_time,symbol,interval,open,high,low,close,volume\n" +
		"2024-01-01T00:00:00Z,2024-01-01T00:05:00Z,ETHUSDT,5m,abc,2010,1995,2005,1234\n"
	if err := os.WriteFile(bad, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadKlinesFromCSV(bad); err == nil {
		t.Error("Expected error for unparseable price field")
	}
}
