package utils

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var ulidMu sync.Mutex
var mono io.Reader

func init() {
	// the seed matters: two invocations in the same millisecond must not
	// produce the same Message-Id
	mono = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
}

// NewULID returns a fresh ULID, used to build Message-Id values.
func NewULID() ulid.ULID {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), mono)
}
