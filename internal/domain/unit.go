package domain

import "context"

// Unit represents one atomic unit of work: a single database
// transaction shared by every lock, balance mutation, ledger append
// and audit append that belongs to one business operation.
// Implementations are storage specific; repositories assert the
// concrete type they were paired with.
type Unit any

// UnitRunner opens a Unit, runs fn inside it and commits, or rolls
// the whole Unit back on the first error. Nothing partial is ever
// observable outside the Unit.
type UnitRunner interface {
	RunInUnit(ctx context.Context, fn func(unit Unit) error) error
}
