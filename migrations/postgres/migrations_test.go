package migrations

import (
	"reflect"
	"strings"
	"testing"
)

func TestMigrationsDiscovered(t *testing.T) {
	if got := Names(); !reflect.DeepEqual(got, []string{"20260101000001", "20260101000002"}) {
		t.Fatalf("unexpected migrations %v", got)
	}
	ms := Migrations.Sorted()
	if !strings.Contains(ms[0].Comment, "projects") || !strings.Contains(ms[1].Comment, "users") {
		t.Fatalf("unexpected comments %q, %q", ms[0].Comment, ms[1].Comment)
	}
}
