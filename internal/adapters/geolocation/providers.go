package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// FixedProvider delivers a single configured point. Used at stations where
// the observer terminal does not move.
type FixedProvider struct {
	Point domain.GeoPoint
}

func (p *FixedProvider) Watch(ctx context.Context, fn func(domain.Position, error)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		if watchCtx.Err() != nil {
			return
		}
		fn(domain.Position{Point: p.Point, Time: time.Now()}, nil)
	}()
	return cancel, nil
}

// HTTPProvider polls a location endpoint returning
// {"latitude": ..., "longitude": ..., "accuracy": ...} JSON.
type HTTPProvider struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
}

type httpFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

func (p *HTTPProvider) Watch(ctx context.Context, fn func(domain.Position, error)) (func(), error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.poll(watchCtx, client, fn)
		for {
			select {
			case <-ticker.C:
				p.poll(watchCtx, client, fn)
			case <-watchCtx.Done():
				return
			}
		}
	}()
	return cancel, nil
}

func (p *HTTPProvider) poll(ctx context.Context, client *http.Client, fn func(domain.Position, error)) {
	if ctx.Err() != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		fn(domain.Position{}, err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			fn(domain.Position{}, err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fn(domain.Position{}, fmt.Errorf("location endpoint returned HTTP %d", resp.StatusCode))
		return
	}

	var fix httpFix
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		fn(domain.Position{}, fmt.Errorf("decode location response: %w", err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	fn(domain.Position{
		Point:    domain.GeoPoint{Lat: fix.Latitude, Lon: fix.Longitude},
		Accuracy: fix.Accuracy,
		Time:     time.Now(),
	}, nil)
}
