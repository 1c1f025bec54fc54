package commons

import "errors"

// ErrRecordNotFound is the generic lookup miss returned by
// repositories; services map it to the entity-specific error.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateRecord reports a unique constraint violation in a form
// services can retry on without knowing the storage driver.
var ErrDuplicateRecord = errors.New("duplicate record")
