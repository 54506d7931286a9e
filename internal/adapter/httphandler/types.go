package httphandler

import (
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	Product struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Slug           string   `json:"slug,omitempty"`
		Description    string   `json:"description,omitempty"`
		Images         []string `json:"images,omitempty"`
		Variant        string   `json:"variant,omitempty"`
		Status         string   `json:"status,omitempty"`
		Price          *float64 `json:"price"`
		EffectivePrice *float64 `json:"effective_price,omitempty"`
	}

	CartLine struct {
		Product  Product `json:"product"`
		Quantity int     `json:"quantity"`
	}

	Cart struct {
		Lines     []CartLine `json:"lines"`
		ItemCount int        `json:"item_count"`
		SubTotal  float64    `json:"subtotal"`
		Discount  float64    `json:"discount"`
		Total     float64    `json:"total"`
	}

	QuantityDelta struct {
		Delta int `json:"delta"`
	}
)

type (
	CheckoutRequest struct {
		AddressID string `json:"address_id"`
	}

	CheckoutResponse struct {
		URL string `json:"url"`
	}

	CheckoutStatus struct {
		OrderNumber string    `json:"order_number"`
		Phase       string    `json:"phase"`
		Reason      string    `json:"reason,omitempty"`
		SessionID   string    `json:"session_id,omitempty"`
		ItemCount   int       `json:"item_count"`
		SubTotal    float64   `json:"subtotal"`
		Total       float64   `json:"total"`
		OccurredAt  time.Time `json:"occurred_at"`
	}
)

type (
	Address struct {
		ID        string    `json:"id,omitempty"`
		Name      string    `json:"name"`
		Email     string    `json:"email,omitempty"`
		Address   string    `json:"address"`
		City      string    `json:"city"`
		State     string    `json:"state,omitempty"`
		Zip       string    `json:"zip,omitempty"`
		Default   bool      `json:"default"`
		CreatedAt time.Time `json:"created_at,omitzero"`
	}

	Subscription struct {
		Email string `json:"email"`
	}

	ContactMessage struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func (p Product) toDomain() domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Images:         p.Images,
		Variant:        p.Variant,
		Status:         p.Status,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice,
	}
}

func productFromDomain(p domain.ProductSnapshot) Product {
	return Product{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Images:         p.Images,
		Variant:        p.Variant,
		Status:         p.Status,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice,
	}
}

func (a Address) toDomain() domain.Address {
	return domain.Address{
		ID:      a.ID,
		Name:    a.Name,
		Email:   a.Email,
		Line:    a.Address,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Default: a.Default,
	}
}

func addressesFromDomain(as []domain.Address) []Address {
	out := make([]Address, len(as))
	for i, a := range as {
		out[i] = Address{
			ID:        a.ID,
			Name:      a.Name,
			Email:     a.Email,
			Address:   a.Line,
			City:      a.City,
			State:     a.State,
			Zip:       a.Zip,
			Default:   a.Default,
			CreatedAt: a.CreatedAt,
		}
	}
	return out
}

func checkoutStatusFromDomain(a domain.CheckoutAttempt) CheckoutStatus {
	return CheckoutStatus{
		OrderNumber: a.OrderNumber,
		Phase:       a.Phase.String(),
		Reason:      a.Reason,
		SessionID:   a.SessionID,
		ItemCount:   a.ItemCount,
		SubTotal:    a.SubTotal,
		Total:       a.Total,
		OccurredAt:  a.OccurredAt,
	}
}
