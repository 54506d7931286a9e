package cms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var (
	_ port.AddressSource       = (*Client)(nil)
	_ port.SubscriptionStorage = (*Client)(nil)
)

const (
	addressType    = "address"
	newsletterType = "newsletter"
	messageType    = "message"
)

type addressDocument struct {
	ID        string    `json:"_id,omitempty"`
	Type      string    `json:"_type,omitempty"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAddressDocument(a domain.Address) addressDocument {
	return addressDocument{
		ID:        a.ID,
		Type:      addressType,
		OwnerID:   a.OwnerID,
		Name:      a.Name,
		Email:     a.Email,
		Address:   a.Line,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		Default:   a.Default,
		CreatedAt: a.CreatedAt.UTC(),
	}
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Email:     d.Email,
		Line:      d.Address,
		City:      d.City,
		State:     d.State,
		Zip:       d.Zip,
		Default:   d.Default,
		CreatedAt: d.CreatedAt,
	}
}

// ListAddresses returns the owner's addresses, newest first.
func (c *Client) ListAddresses(
	ctx context.Context, ownerID string,
) ([]domain.Address, error) {
	const op = "cms.Client.ListAddresses"

	groq := `*[_type == "address" && ownerId == $owner] | order(createdAt desc)`

	var docs []addressDocument
	_, err := c.query(ctx, groq, map[string]any{"owner": ownerID}, &docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	addrs := make([]domain.Address, len(docs))
	for i, d := range docs {
		addrs[i] = d.toDomain()
	}
	return addrs, nil
}

func (c *Client) CreateAddress(
	ctx context.Context, a domain.Address,
) (domain.Address, error) {
	const op = "cms.Client.CreateAddress"

	doc := toAddressDocument(a)
	doc.ID = ""

	res, err := c.mutate(ctx, mutation{"create": doc})
	if err != nil {
		return domain.Address{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(res.Results) == 0 || res.Results[0].ID == "" {
		return domain.Address{}, fmt.Errorf("%s: %w: no document id", op, ErrUnexpectedResponse)
	}

	a.ID = res.Results[0].ID
	slog.Debug("address created", "op", op, "id", a.ID)
	return a, nil
}

func (c *Client) UpdateAddress(ctx context.Context, a domain.Address) error {
	const op = "cms.Client.UpdateAddress"

	set := map[string]any{
		"name":    a.Name,
		"email":   a.Email,
		"address": a.Line,
		"city":    a.City,
		"state":   a.State,
		"zip":     a.Zip,
		"default": a.Default,
	}

	res, err := c.mutate(ctx, mutation{
		"patch": map[string]any{"id": a.ID, "set": set},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(res.Results) == 0 {
		return fmt.Errorf("%s: address %q: %w", op, a.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteAddress only deletes a document the owner holds.
func (c *Client) DeleteAddress(ctx context.Context, ownerID, id string) error {
	const op = "cms.Client.DeleteAddress"

	res, err := c.mutate(ctx, mutation{
		"delete": map[string]any{
			"query": `*[_type == "address" && _id == $id && ownerId == $owner]`,
			"params": map[string]any{
				"id":    id,
				"owner": ownerID,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(res.Results) == 0 {
		return fmt.Errorf("%s: address %q: %w", op, id, domain.ErrNotFound)
	}
	return nil
}

func (c *Client) SubscriberExists(ctx context.Context, email string) (bool, error) {
	const op = "cms.Client.SubscriberExists"

	groq := `*[_type == "newsletter" && email == $email][0]{_id}`

	var doc struct {
		ID string `json:"_id"`
	}
	found, err := c.query(ctx, groq, map[string]any{"email": email}, &doc)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}

func (c *Client) CreateSubscriber(ctx context.Context, s domain.Subscriber) error {
	const op = "cms.Client.CreateSubscriber"

	_, err := c.mutate(ctx, mutation{"create": map[string]any{
		"_type":        newsletterType,
		"email":        s.Email,
		"subscribedAt": s.SubscribedAt.UTC().Format(time.RFC3339),
	}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) CreateMessage(ctx context.Context, m domain.ContactMessage) error {
	const op = "cms.Client.CreateMessage"

	_, err := c.mutate(ctx, mutation{"create": map[string]any{
		"_type":   messageType,
		"name":    m.Name,
		"email":   m.Email,
		"message": m.Message,
		"date":    m.Date.UTC().Format(time.RFC3339),
	}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
