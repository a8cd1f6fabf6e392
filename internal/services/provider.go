package services

import (
	"context"
)

// Checker reports whether a backing service is reachable
type Checker interface {
	// Type returns the service type name
	Type() string

	// HealthCheck checks if the service is available
	HealthCheck(ctx context.Context) error
}

// BaseProvider provides common functionality for checkers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// Pinger is anything with a context-aware Ping, such as a session store
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger to the Checker interface
type PingChecker struct {
	BaseProvider
	target Pinger
}

// NewPingChecker wraps target under the given service type
func NewPingChecker(serviceType string, target Pinger) *PingChecker {
	return &PingChecker{
		BaseProvider: BaseProvider{serviceType: serviceType},
		target:       target,
	}
}

// HealthCheck pings the wrapped target
func (c *PingChecker) HealthCheck(ctx context.Context) error {
	return c.target.Ping(ctx)
}
