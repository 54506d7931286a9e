package domain

type (
	CartLine struct {
		ProductID string
		Product   ProductSnapshot
		Quantity  int
	}

	// A CartState is the persisted form of a cart: lines in insertion order.
	CartState struct {
		Lines []CartLine
	}

	// A CartItem is one entry of the grouped view.
	CartItem struct {
		Product  ProductSnapshot
		Quantity int
	}
)

// Clone returns a deep copy of the state.
func (s CartState) Clone() CartState {
	if s.Lines == nil {
		return CartState{}
	}
	lines := make([]CartLine, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = CartLine{
			ProductID: l.ProductID,
			Product:   l.Product.Clone(),
			Quantity:  l.Quantity,
		}
	}
	return CartState{Lines: lines}
}

// CloneItems deep copies grouped items.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	c := make([]CartItem, len(items))
	for i, it := range items {
		c[i] = CartItem{Product: it.Product.Clone(), Quantity: it.Quantity}
	}
	return c
}

// CheckItems reports [ErrEmptyCart] or the first [*MissingPriceError].
func CheckItems(items []CartItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range items {
		if !it.Product.HasPrice() {
			return &MissingPriceError{
				ProductID:   it.Product.ID,
				ProductName: it.Product.Name,
			}
		}
	}
	return nil
}
