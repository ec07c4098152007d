package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderIDUsesCreationTime(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 14, 5, 9, 0, time.FixedZone("ICT", 7*60*60))

	assert.Regexp(t, `^BOOK-20240601-070509-\d{4}$`, GenerateOrderID(createdAt))
}

func TestHashPayload(t *testing.T) {
	a := HashPayload([]byte(`{"booking_id":"1"}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashPayload([]byte(`{"booking_id":"1"}`)))
	assert.NotEqual(t, a, HashPayload([]byte(`{"booking_id":"2"}`)))
}
