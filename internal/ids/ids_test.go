package ids

import (
	"testing"
	"time"
)

func TestNewIsSortable(t *testing.T) {
	prev := ""
	for i := 0; i < 1000; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if id <= prev {
			t.Fatalf("ids must sort in mint order: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestNewAtCarriesTimestamp(t *testing.T) {
	ts := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)
	id := NewAt(ts)
	got := Time(id)
	if !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
}

func TestTimeOnGarbage(t *testing.T) {
	if !Time("not-an-id").IsZero() {
		t.Fatal("unparseable id must yield the zero time")
	}
}
