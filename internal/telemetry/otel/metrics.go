package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts session lifecycle outcomes.
type AuthMetrics struct {
	logins        metric.Int64Counter
	logouts       metric.Int64Counter
	refreshes     metric.Int64Counter
	invalidations metric.Int64Counter
}

func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	logins, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("Completed logins"))
	if err != nil {
		return nil, err
	}
	logouts, err := meter.Int64Counter("auth.logouts",
		metric.WithDescription("Completed logouts"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh attempts by outcome"))
	if err != nil {
		return nil, err
	}
	invalidations, err := meter.Int64Counter("auth.forced_invalidations",
		metric.WithDescription("Sessions force-invalidated by the middleware"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{
		logins:        logins,
		logouts:       logouts,
		refreshes:     refreshes,
		invalidations: invalidations,
	}, nil
}

func (m *AuthMetrics) Login(ctx context.Context) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1)
}

func (m *AuthMetrics) Logout(ctx context.Context) {
	if m == nil {
		return
	}
	m.logouts.Add(ctx, 1)
}

func (m *AuthMetrics) Refresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AuthMetrics) ForcedInvalidation(ctx context.Context) {
	if m == nil {
		return
	}
	m.invalidations.Add(ctx, 1)
}
