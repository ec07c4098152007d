package entity

import "github.com/google/uuid"

type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "PROCESSING"
	IdempotencyCompleted  IdempotencyStatus = "COMPLETED"
)

// IdempotencyRecord is unique on (Key, UserID, Endpoint). Attempt names the
// execution that currently owns a PROCESSING record.
type IdempotencyRecord struct {
	BaseNoDelete
	Attempt     uuid.UUID         `db:"attempt"`
	Key         string            `db:"key"`
	UserID      string            `db:"user_id"`
	Endpoint    string            `db:"endpoint"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
}
