package payments

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderResult is a successful provider round trip.
type ProviderResult struct {
	TransactionID string
	Message       string
}

// Provider simulates a mobile-money gateway round trip. The delay is not
// cancellable once started, matching a fire-and-forget STK push.
type Provider interface {
	Name() string
	Reference() string
	Initiate(phoneNumber string, amount float64) (ProviderResult, error)
}

// SimulatedProvider stands in for a real gateway: fixed latency, configurable
// success probability.
type SimulatedProvider struct {
	name        string
	prefix      string
	latency     time.Duration
	successRate float64
	message     string

	// roll returns a uniform [0,1) sample; replaceable in tests.
	roll func() float64
}

// NewMpesaSimulator builds the M-Pesa-style provider (~90% success).
func NewMpesaSimulator(latency time.Duration, successRate float64) *SimulatedProvider {
	return &SimulatedProvider{
		name:        "mpesa",
		prefix:      "MPESA",
		latency:     latency,
		successRate: successRate,
		message:     "Payment initiated successfully. Please check your phone to complete the payment.",
		roll:        rand.Float64,
	}
}

// NewEcocashSimulator builds the EcoCash-style provider, which always
// succeeds in this simulation.
func NewEcocashSimulator(latency time.Duration) *SimulatedProvider {
	return &SimulatedProvider{
		name:        "ecocash",
		prefix:      "ECOCASH",
		latency:     latency,
		successRate: 1.0,
		message:     "EcoCash payment initiated. Please check your phone.",
		roll:        rand.Float64,
	}
}

func (p *SimulatedProvider) Name() string { return p.name }

// Initiate waits out the simulated provider latency, then either returns a
// transaction id or the simulated failure.
func (p *SimulatedProvider) Initiate(phoneNumber string, amount float64) (ProviderResult, error) {
	if p.latency > 0 {
		time.Sleep(p.latency)
	}

	if p.successRate < 1.0 && p.roll() >= p.successRate {
		return ProviderResult{}, fmt.Errorf("simulated %s API failure", strings.ToUpper(p.name))
	}

	return ProviderResult{
		TransactionID: p.Reference(),
		Message:       p.message,
	}, nil
}

// Reference generates a provider-scoped reference string.
func (p *SimulatedProvider) Reference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s_%s", p.prefix, id[:16])
}
