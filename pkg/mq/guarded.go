package mq

import (
	"context"
	"errors"

	"todoapp/pkg/circuitbreaker"
	"todoapp/pkg/metrics"
)

// Sink is anything that can publish an event.
type Sink interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// GuardedPublisher 在 broker 持续失败时熔断，避免每个请求都等待发布超时
type GuardedPublisher struct {
	sink    Sink
	breaker *circuitbreaker.Breaker
}

func NewGuardedPublisher(sink Sink, breaker *circuitbreaker.Breaker) *GuardedPublisher {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	return &GuardedPublisher{sink: sink, breaker: breaker}
}

func (g *GuardedPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	err := g.breaker.Execute(func() error {
		return g.sink.Publish(ctx, routingKey, payload)
	})
	switch {
	case err == nil:
		metrics.IncrementEventPublish(routingKey, "ok")
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.IncrementEventPublish(routingKey, "skipped")
	default:
		metrics.IncrementEventPublish(routingKey, "error")
	}
	return err
}

// State reports the breaker state for readiness output.
func (g *GuardedPublisher) State() circuitbreaker.State {
	return g.breaker.State()
}
