package service

import "github.com/niksmo/storefront/internal/core/domain"

// The functions below compute the next cart state without side effects.
// Each returns a fresh state and whether anything changed.

func addProduct(
	s domain.CartState, p domain.ProductSnapshot,
) (domain.CartState, bool) {
	next := s.Clone()
	if i := lineIndex(next, p.ID); i >= 0 {
		next.Lines[i].Quantity++
		return next, true
	}
	next.Lines = append(next.Lines, domain.CartLine{
		ProductID: p.ID,
		Product:   p.Clone(),
		Quantity:  1,
	})
	return next, true
}

func changeQuantity(
	s domain.CartState, productID string, delta int,
) (domain.CartState, bool) {
	i := lineIndex(s, productID)
	if i < 0 || delta == 0 {
		return s, false
	}
	if s.Lines[i].Quantity+delta <= 0 {
		return removeProduct(s, productID)
	}
	next := s.Clone()
	next.Lines[i].Quantity += delta
	return next, true
}

func removeProduct(
	s domain.CartState, productID string,
) (domain.CartState, bool) {
	i := lineIndex(s, productID)
	if i < 0 {
		return s, false
	}
	next := s.Clone()
	next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
	return next, true
}

func lineIndex(s domain.CartState, productID string) int {
	for i, l := range s.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// normalizeState drops lines a persister may hand back that break
// the cart invariants: non positive quantities and duplicate products.
func normalizeState(s domain.CartState) domain.CartState {
	var out domain.CartState
	for _, l := range s.Lines {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if i := lineIndex(out, l.ProductID); i >= 0 {
			out.Lines[i].Quantity += l.Quantity
			continue
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}

func groupItems(s domain.CartState) []domain.CartItem {
	items := make([]domain.CartItem, len(s.Lines))
	for i, l := range s.Lines {
		items[i] = domain.CartItem{
			Product:  l.Product.Clone(),
			Quantity: l.Quantity,
		}
	}
	return items
}

func subTotalOf(items []domain.CartItem) (sum float64) {
	for _, it := range items {
		sum += it.Product.ListPrice() * float64(it.Quantity)
	}
	return sum
}

func totalOf(items []domain.CartItem) (sum float64) {
	for _, it := range items {
		sum += it.Product.SalePrice() * float64(it.Quantity)
	}
	return sum
}

func quantityOf(items []domain.CartItem) (n int) {
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
