package domain

import "time"

type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}
