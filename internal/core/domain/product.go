package domain

type (
	// A ProductSnapshot is the product payload captured when the product
	// was put into the cart. The cart never reinterprets it.
	ProductSnapshot struct {
		ID             string
		Name           string
		Slug           string
		Description    string
		Images         []string
		Variant        string
		Status         string
		Price          *float64
		EffectivePrice *float64
	}
)

// ListPrice returns the undiscounted price, zero when the price is missing.
func (p ProductSnapshot) ListPrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// SalePrice returns the effective price if present, else the list price.
func (p ProductSnapshot) SalePrice() float64 {
	if p.EffectivePrice != nil {
		return *p.EffectivePrice
	}
	return p.ListPrice()
}

// HasPrice reports whether the list price is defined.
func (p ProductSnapshot) HasPrice() bool {
	return p.Price != nil
}

// Clone returns a deep copy of the snapshot.
func (p ProductSnapshot) Clone() ProductSnapshot {
	c := p
	if p.Images != nil {
		c.Images = append([]string(nil), p.Images...)
	}
	if p.Price != nil {
		v := *p.Price
		c.Price = &v
	}
	if p.EffectivePrice != nil {
		v := *p.EffectivePrice
		c.EffectivePrice = &v
	}
	return c
}
