package smtp

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/go-api-community/internal/logging"
	"github.com/go-api-community/internal/metrics"
)

const breakerName = "smtp"

// BreakerMailer stops calling the SMTP server after consecutive failures and
// fails fast with gobreaker.ErrOpenState until the timeout elapses.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// BreakerSettings configures NewBreakerMailer. Zero values fall back to
// 5 failures and gobreaker's 60s open timeout.
type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

func NewBreakerMailer(next Mailer, s BreakerSettings) *BreakerMailer {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &BreakerMailer{next: next, cb: cb}
}

func (b *BreakerMailer) SendEmail(to, subject, body string) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendEmail(to, subject, body)
	})
	return err
}

// State exposes the breaker state for health reporting.
func (b *BreakerMailer) State() gobreaker.State {
	return b.cb.State()
}
