package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

func NewDispatchID() string {
	// ULID is sortable, handy when grepping logs by time
	t := time.Now().UTC()
	return "wa_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
