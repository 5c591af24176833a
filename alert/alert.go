// Package alert reports failed query executions to an external alerting service.
//
// A failed query here is a rolled-back transaction, so a Provider is usually attached to a
// query chain through wrapper.NewAlertWrapper rather than called directly.
package alert

import (
	"context"

	"github.com/code19m/errx"
)

// Provider sends error alerts.
type Provider interface {
	// SendError reports an error identified by errCode that happened during operation.
	// details carries additional context such as trace id and query name.
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error
}

// NewProvider returns a Sentinel provider, or a no-op provider when cfg.Disable is set.
func NewProvider(cfg Config, serviceName, serviceVersion string) (Provider, error) {
	if cfg.Disable {
		return NoOp(), nil
	}

	p, err := NewSentinelProvider(cfg, serviceName, serviceVersion)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return p, nil
}

// NoOp returns a provider that drops every alert.
func NoOp() Provider {
	return noOpProvider{}
}

type noOpProvider struct{}

func (noOpProvider) SendError(_ context.Context, _, _, _ string, _ map[string]string) error {
	return nil
}
