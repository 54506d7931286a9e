package port

import (
	"context"

	"github.com/niksmo/storefront/internal/core/domain"
)

type CartPersister interface {
	LoadCart(ctx context.Context, key string) (domain.CartState, error)
	SaveCart(ctx context.Context, key string, s domain.CartState) error
}

type SessionCreator interface {
	CreateSession(context.Context, domain.CheckoutRequest) (domain.CheckoutSession, error)
}

type BuyerResolver interface {
	ResolveBuyer(ctx context.Context, token string) (domain.Buyer, error)
}

type AddressSource interface {
	ListAddresses(ctx context.Context, ownerID string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error)
	UpdateAddress(ctx context.Context, a domain.Address) error
	DeleteAddress(ctx context.Context, ownerID, id string) error
}

type SubscriptionStorage interface {
	SubscriberExists(ctx context.Context, email string) (bool, error)
	CreateSubscriber(context.Context, domain.Subscriber) error
	CreateMessage(context.Context, domain.ContactMessage) error
}

type CheckoutNotifier interface {
	NotifyCheckout(context.Context, domain.CheckoutAttempt) error
}

type CheckoutLookup interface {
	LookupCheckout(ctx context.Context, orderNumber string) (domain.CheckoutAttempt, error)
}

// Inbound ports used by the http handlers.

type CartSessions interface {
	Cart(ctx context.Context, key string) CartStore
	BeginCheckout(key string) (release func(), ok bool)
}

type CartStore interface {
	AddItem(context.Context, domain.ProductSnapshot)
	RemoveItem(ctx context.Context, productID string)
	UpdateQuantity(ctx context.Context, productID string, delta int)
	Reset(context.Context)
	ItemCount(productID string) int
	GroupedItems() []domain.CartItem
	SubTotalPrice() float64
	TotalPrice() float64
	Discount() float64
}

type CheckoutSubmitter interface {
	BuildAndSubmit(
		ctx context.Context,
		items []domain.CartItem,
		buyer *domain.Buyer,
		address *domain.Address,
	) (string, error)
}

type AddressBook interface {
	Addresses(ctx context.Context, buyer domain.Buyer) ([]domain.Address, error)
	SelectedAddress(ctx context.Context, buyer domain.Buyer, id string) (*domain.Address, error)
	AddAddress(ctx context.Context, buyer domain.Buyer, a domain.Address) ([]domain.Address, error)
	EditAddress(ctx context.Context, buyer domain.Buyer, a domain.Address) ([]domain.Address, error)
	RemoveAddress(ctx context.Context, buyer domain.Buyer, id string) ([]domain.Address, error)
}

type Subscriptions interface {
	Subscribe(ctx context.Context, email string) error
	SendMessage(context.Context, domain.ContactMessage) error
}
