package domain

import "time"

// Operator is a back-office actor referenced by audit entries.
type Operator struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
