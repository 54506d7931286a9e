package domain

// A Buyer is the authenticated principal placing an order.
type Buyer struct {
	ID          string
	DisplayName string
	Email       string
}

// UnknownCustomer stands in for a missing buyer name or email.
const UnknownCustomer = "Unknown"
