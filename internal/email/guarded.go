package email

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/lab-api/pkg/circuitbreaker"
)

// GuardedService stops dialing the mail server after repeated failures so
// a dead server does not add a connect timeout to every bill.
type GuardedService struct {
	next    Service
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedService(next Service, breaker *circuitbreaker.CircuitBreaker) *GuardedService {
	return &GuardedService{next: next, breaker: breaker}
}

func (g *GuardedService) SendInvoice(ctx context.Context, inv Invoice) error {
	err := g.breaker.Execute(func() error {
		return g.next.SendInvoice(ctx, inv)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		log.Warn().
			Str("breaker", g.breaker.Name()).
			Str("invoice", inv.InvoiceNumber).
			Msg("Mail server unavailable, invoice mail skipped")
	}
	return err
}

func defaultBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "smtp",
		MaxFailures: 3,
		Timeout:     5 * time.Minute,
	})
}
