package domain

import "time"

type CheckoutPhase int

const (
	PhaseIdle CheckoutPhase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseRedirected
	PhaseRejected
	PhaseFailed
)

func (p CheckoutPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseRedirected:
		return "redirected"
	case PhaseRejected:
		return "rejected"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseCheckoutPhase is the inverse of [CheckoutPhase.String].
func ParseCheckoutPhase(s string) CheckoutPhase {
	for p := PhaseIdle; p <= PhaseFailed; p++ {
		if p.String() == s {
			return p
		}
	}
	return PhaseIdle
}

type (
	CheckoutMetadata struct {
		OrderNumber   string
		CustomerName  string
		CustomerEmail string
		BuyerID       string
		Address       Address
	}

	// A CheckoutRequest is the provider agnostic checkout intent.
	CheckoutRequest struct {
		LineItems []CartItem
		Metadata  CheckoutMetadata
	}

	CheckoutSession struct {
		ID  string
		URL string
	}

	// A CheckoutAttempt describes a finished checkout attempt.
	CheckoutAttempt struct {
		OrderNumber   string
		BuyerID       string
		CustomerEmail string
		Phase         CheckoutPhase
		Reason        string
		SessionID     string
		ItemCount     int
		SubTotal      float64
		Total         float64
		OccurredAt    time.Time
	}
)
