package store

import "testing"

func TestRebindDollar(t *testing.T) {
	t.Parallel()

	got := rebindDollar("SELECT a FROM t WHERE x = ? AND y = ?")
	if got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Fatalf("rebindDollar() = %q", got)
	}
}

func TestTimestampsSortAsText(t *testing.T) {
	t.Parallel()

	a := fromTS("2024-06-01T10:00:00.500000000Z")
	b := fromTS("2024-06-01T10:00:01.000000000Z")
	if !a.Before(b) || toTS(a) >= toTS(b) {
		t.Fatalf("timestamps out of order: %s %s", toTS(a), toTS(b))
	}
}
