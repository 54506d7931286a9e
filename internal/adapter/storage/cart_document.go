package storage

import (
	"encoding/json"

	"github.com/niksmo/storefront/internal/core/domain"
)

// Carts are stored as json documents, the same shape for every backend.
type (
	cartDocument struct {
		Lines []cartLineDocument `json:"lines"`
	}

	cartLineDocument struct {
		ProductID string          `json:"product_id"`
		Quantity  int             `json:"quantity"`
		Product   productDocument `json:"product"`
	}

	productDocument struct {
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
)

func encodeCart(s domain.CartState) ([]byte, error) {
	doc := cartDocument{Lines: make([]cartLineDocument, len(s.Lines))}
	for i, l := range s.Lines {
		p := l.Product
		doc.Lines[i] = cartLineDocument{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product: productDocument{
				ID:             p.ID,
				Name:           p.Name,
				Slug:           p.Slug,
				Description:    p.Description,
				Images:         p.Images,
				Variant:        p.Variant,
				Status:         p.Status,
				Price:          p.Price,
				EffectivePrice: p.EffectivePrice,
			},
		}
	}
	return json.Marshal(doc)
}

func decodeCart(data []byte) (domain.CartState, error) {
	var doc cartDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.CartState{}, err
	}

	var s domain.CartState
	for _, l := range doc.Lines {
		p := l.Product
		s.Lines = append(s.Lines, domain.CartLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product: domain.ProductSnapshot{
				ID:             p.ID,
				Name:           p.Name,
				Slug:           p.Slug,
				Description:    p.Description,
				Images:         p.Images,
				Variant:        p.Variant,
				Status:         p.Status,
				Price:          p.Price,
				EffectivePrice: p.EffectivePrice,
			},
		})
	}
	return s, nil
}
