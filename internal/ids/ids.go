package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier. Audit entries rely on
// this ordering: the entry id doubles as the pagination cursor, so ids minted
// later must always sort after ids minted earlier.
func New() string {
	return NewAt(time.Now())
}

// NewAt mints an identifier carrying the given timestamp. Useful in tests
// that need entries at controlled points on the id axis.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Time extracts the timestamp component from an identifier. Returns the zero
// time when the id does not parse.
func Time(id string) time.Time {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
