package httphandler_test

import (
	"context"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) BuildAndSubmit(
	ctx context.Context,
	items []domain.CartItem,
	buyer *domain.Buyer,
	address *domain.Address,
) (string, error) {
	args := m.Called(ctx, items, buyer, address)
	return args.String(0), args.Error(1)
}

type MockAddressBook struct {
	mock.Mock
}

func (m *MockAddressBook) Addresses(
	ctx context.Context, buyer domain.Buyer,
) ([]domain.Address, error) {
	args := m.Called(ctx, buyer)
	addrs, _ := args.Get(0).([]domain.Address)
	return addrs, args.Error(1)
}

func (m *MockAddressBook) SelectedAddress(
	ctx context.Context, buyer domain.Buyer, id string,
) (*domain.Address, error) {
	args := m.Called(ctx, buyer, id)
	a, _ := args.Get(0).(*domain.Address)
	return a, args.Error(1)
}

func (m *MockAddressBook) AddAddress(
	ctx context.Context, buyer domain.Buyer, a domain.Address,
) ([]domain.Address, error) {
	args := m.Called(ctx, buyer, a)
	addrs, _ := args.Get(0).([]domain.Address)
	return addrs, args.Error(1)
}

func (m *MockAddressBook) EditAddress(
	ctx context.Context, buyer domain.Buyer, a domain.Address,
) ([]domain.Address, error) {
	args := m.Called(ctx, buyer, a)
	addrs, _ := args.Get(0).([]domain.Address)
	return addrs, args.Error(1)
}

func (m *MockAddressBook) RemoveAddress(
	ctx context.Context, buyer domain.Buyer, id string,
) ([]domain.Address, error) {
	args := m.Called(ctx, buyer, id)
	addrs, _ := args.Get(0).([]domain.Address)
	return addrs, args.Error(1)
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) Subscribe(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockSubscriptions) SendMessage(
	ctx context.Context, msg domain.ContactMessage,
) error {
	return m.Called(ctx, msg).Error(0)
}

type MockBuyerResolver struct {
	mock.Mock
}

func (m *MockBuyerResolver) ResolveBuyer(
	ctx context.Context, token string,
) (domain.Buyer, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Buyer), args.Error(1)
}

type MockCheckoutLookup struct {
	mock.Mock
}

func (m *MockCheckoutLookup) LookupCheckout(
	ctx context.Context, orderNumber string,
) (domain.CheckoutAttempt, error) {
	args := m.Called(ctx, orderNumber)
	return args.Get(0).(domain.CheckoutAttempt), args.Error(1)
}
