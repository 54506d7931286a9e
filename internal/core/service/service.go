package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.AddressBook = (*Service)(nil)
var _ port.Subscriptions = (*Service)(nil)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// A Service serves the address book and the newsletter and contact forms.
type Service struct {
	addresses     port.AddressSource
	subscriptions port.SubscriptionStorage
	now           func() time.Time
}

func New(
	addresses port.AddressSource,
	subscriptions port.SubscriptionStorage,
) Service {
	return Service{
		addresses:     addresses,
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

func (s Service) Addresses(
	ctx context.Context, buyer domain.Buyer,
) ([]domain.Address, error) {
	const op = "Service.Addresses"

	if err := checkBuyer(ctx, buyer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	addrs, err := s.addresses.ListAddresses(ctx, buyer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addrs, nil
}

// SelectedAddress returns the address to deliver to, nil if the buyer
// has none or the requested id is unknown.
func (s Service) SelectedAddress(
	ctx context.Context, buyer domain.Buyer, id string,
) (*domain.Address, error) {
	const op = "Service.SelectedAddress"

	addrs, err := s.Addresses(ctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return domain.SelectAddress(addrs, id), nil
}

// AddAddress stores a and returns the refreshed address list.
func (s Service) AddAddress(
	ctx context.Context, buyer domain.Buyer, a domain.Address,
) ([]domain.Address, error) {
	const op = "Service.AddAddress"

	if err := checkBuyer(ctx, buyer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateAddress(a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.ID = ""
	a.OwnerID = buyer.ID
	a.CreatedAt = s.now()

	created, err := s.addresses.CreateAddress(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if created.Default {
		if err := s.unsetOtherDefaults(ctx, buyer.ID, created.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s.Addresses(ctx, buyer)
}

// EditAddress updates a and returns the refreshed address list.
func (s Service) EditAddress(
	ctx context.Context, buyer domain.Buyer, a domain.Address,
) ([]domain.Address, error) {
	const op = "Service.EditAddress"

	if err := checkBuyer(ctx, buyer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateAddress(a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkOwner(ctx, buyer.ID, a.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.OwnerID = buyer.ID
	if err := s.addresses.UpdateAddress(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if a.Default {
		if err := s.unsetOtherDefaults(ctx, buyer.ID, a.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s.Addresses(ctx, buyer)
}

// RemoveAddress deletes the address and returns the refreshed list.
func (s Service) RemoveAddress(
	ctx context.Context, buyer domain.Buyer, id string,
) ([]domain.Address, error) {
	const op = "Service.RemoveAddress"

	if err := checkBuyer(ctx, buyer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkOwner(ctx, buyer.ID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.addresses.DeleteAddress(ctx, buyer.ID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.Addresses(ctx, buyer)
}

func (s Service) Subscribe(ctx context.Context, email string) error {
	const op = "Service.Subscribe"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	email = normalizeEmail(email)
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%s: %w: email", op, domain.ErrInvalidInput)
	}

	exists, err := s.subscriptions.SubscriberExists(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadySubscribed)
	}

	err = s.subscriptions.CreateSubscriber(ctx, domain.Subscriber{
		Email:        email,
		SubscribedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscribed")
	return nil
}

func (s Service) SendMessage(
	ctx context.Context, m domain.ContactMessage,
) error {
	const op = "Service.SendMessage"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.Name = strings.TrimSpace(m.Name)
	m.Email = normalizeEmail(m.Email)
	m.Message = strings.TrimSpace(m.Message)

	switch {
	case !emailRe.MatchString(m.Email):
		return fmt.Errorf("%s: %w: email", op, domain.ErrInvalidInput)
	case m.Message == "":
		return fmt.Errorf("%s: %w: message", op, domain.ErrInvalidInput)
	}

	m.Date = s.now()
	if err := s.subscriptions.CreateMessage(ctx, m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s Service) checkOwner(ctx context.Context, ownerID, id string) error {
	addrs, err := s.addresses.ListAddresses(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a.ID == id {
			return nil
		}
	}
	return fmt.Errorf("address %q: %w", id, domain.ErrNotFound)
}

func (s Service) unsetOtherDefaults(
	ctx context.Context, ownerID, keepID string,
) error {
	addrs, err := s.addresses.ListAddresses(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a.ID == keepID || !a.Default {
			continue
		}
		a.Default = false
		if err := s.addresses.UpdateAddress(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func checkBuyer(ctx context.Context, buyer domain.Buyer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if buyer.ID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

func validateAddress(a domain.Address) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: name", domain.ErrInvalidInput)
	case strings.TrimSpace(a.Line) == "":
		return fmt.Errorf("%w: address", domain.ErrInvalidInput)
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%w: city", domain.ErrInvalidInput)
	case a.Email != "" && !emailRe.MatchString(normalizeEmail(a.Email)):
		return fmt.Errorf("%w: email", domain.ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
