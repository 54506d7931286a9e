package domain

import "time"

type Subscriber struct {
	Email        string
	SubscribedAt time.Time
}

type ContactMessage struct {
	Name    string
	Email   string
	Message string
	Date    time.Time
}
