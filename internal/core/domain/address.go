package domain

import "time"

type Address struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Line      string
	City      string
	State     string
	Zip       string
	Default   bool
	CreatedAt time.Time
}

// SelectAddress picks the address with the given id when id is set,
// otherwise the default address, otherwise the first one.
// Returns nil when nothing matches.
func SelectAddress(addrs []Address, id string) *Address {
	if id != "" {
		for i := range addrs {
			if addrs[i].ID == id {
				a := addrs[i]
				return &a
			}
		}
		return nil
	}
	for i := range addrs {
		if addrs[i].Default {
			a := addrs[i]
			return &a
		}
	}
	if len(addrs) != 0 {
		a := addrs[0]
		return &a
	}
	return nil
}
