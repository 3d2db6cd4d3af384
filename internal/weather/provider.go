package weather

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/observability"
)

// Multipliers applied to emissions depending on the current temperature
const (
	ImpactCold    = 0.8
	ImpactNeutral = 1.0
	ImpactHot     = 1.2
)

// ImpactFor maps a temperature in °C to its emission multiplier
func ImpactFor(tempC float64) float64 {
	switch {
	case tempC > 30:
		return ImpactHot
	case tempC < 15:
		return ImpactCold
	default:
		return ImpactNeutral
	}
}

// ImpactCache stores the last successful impact for a bounded time
type ImpactCache interface {
	Get(ctx context.Context) (float64, bool, error)
	Set(ctx context.Context, impact float64, ttl time.Duration) error
}

// Provider turns the upstream temperature into an impact factor.
// It never fails: any upstream error yields ImpactNeutral.
type Provider struct {
	source   TemperatureSource
	location string
	cache    ImpactCache
	ttl      time.Duration
	group    singleflight.Group
	log      *logger.Logger
}

type Option func(*Provider)

// WithCache serves impacts from cache for up to ttl after a successful fetch.
// A nil cache or non-positive ttl keeps one upstream call per FetchImpact.
func WithCache(cache ImpactCache, ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = cache
		p.ttl = ttl
	}
}

// NewProvider creates a provider for a fixed location
func NewProvider(source TemperatureSource, location string, log *logger.Logger, opts ...Option) *Provider {
	p := &Provider{
		source:   source,
		location: location,
		log:      log.With("component", "WeatherProvider", "location", location),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchImpact returns the current impact factor, falling back to ImpactNeutral on failure
func (p *Provider) FetchImpact(ctx context.Context) float64 {
	if p.cache == nil || p.ttl <= 0 {
		return p.resolve(p.fetch(ctx))
	}

	impact, ok, err := p.cache.Get(ctx)
	if err != nil {
		p.log.Warn("Weather cache read failed", "error", err)
	} else if ok {
		observability.RecordWeatherFetch(observability.WeatherCached)
		return impact
	}

	// The shared fetch ignores caller cancellation; each caller stops waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(p.location, func() (interface{}, error) {
		impact, err := p.fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Set(shared, impact, p.ttl); err != nil {
			p.log.Warn("Weather cache write failed", "error", err)
		}
		return impact, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return p.resolve(0, res.Err)
		}
		return p.resolve(res.Val.(float64), nil)
	case <-ctx.Done():
		return p.resolve(0, ctx.Err())
	}
}

func (p *Provider) fetch(ctx context.Context) (float64, error) {
	temp, err := p.source.CurrentTemperature(ctx, p.location)
	if err != nil {
		return 0, err
	}
	return ImpactFor(temp), nil
}

func (p *Provider) resolve(impact float64, err error) float64 {
	if err != nil {
		p.log.Warn("Weather lookup failed, using neutral impact", "error", err)
		observability.RecordWeatherFetch(observability.WeatherFallback)
		return ImpactNeutral
	}
	observability.RecordWeatherFetch(observability.WeatherOK)
	return impact
}
