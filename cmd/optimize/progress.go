package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// progress records every evaluation to a CSV file and keeps the best point.
type progress struct {
	f     *os.File
	w     *csv.Writer
	start time.Time
	limit int

	evals      int
	best       float64
	bestParams []float64
}

func newProgress(path string, specs []ParamSpec, limit int) (*progress, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating progress log: %w", err)
	}
	p := &progress{f: f, w: csv.NewWriter(f), start: time.Now(), limit: limit, best: 1e9}
	header := []string{"eval", "fitness", "quality"}
	for _, s := range specs {
		header = append(header, s.Name)
	}
	if err := p.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing progress header: %w", err)
	}
	return p, nil
}

// record logs one evaluation. values are the clamped parameters the ride ran with.
func (p *progress) record(fitness, quality float64, values []float64) {
	p.evals++
	if fitness < p.best {
		p.best = fitness
		p.bestParams = append(p.bestParams[:0], values...)
	}

	row := make([]string, 0, len(values)+3)
	row = append(row, strconv.Itoa(p.evals),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(quality, 'f', 6, 64))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	p.w.Write(row)
	p.w.Flush()

	elapsed := time.Since(p.start)
	eta := time.Duration(p.limit-p.evals) * (elapsed / time.Duration(p.evals))
	fmt.Printf("eval %d/%d quality=%.3f best=%.3f elapsed=%s eta=%s\n",
		p.evals, p.limit, quality, -p.best, clock(elapsed), clock(eta))
}

func (p *progress) Close() error {
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		p.f.Close()
		return err
	}
	return p.f.Close()
}

// clock formats a duration as 1h02m03s, or 2m03s under an hour.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func (p *progress) elapsed() time.Duration { return time.Since(p.start) }
