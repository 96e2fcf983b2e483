package rgit

import (
	"time"

	"github.com/google/uuid"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces resume, branch, commit and block ids.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random version 4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
