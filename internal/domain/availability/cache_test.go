package availability

import (
	"testing"

	"equiprent/internal/domain/shared/daterange"
)

func TestCacheKey_DefaultSentinel(t *testing.T) {
	r, err := daterange.Parse("2025-06-01", "2025-06-05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := CacheKey(r, ""); got != "2025-06-01|2025-06-05|default" {
		t.Fatalf("unexpected key %q", got)
	}
	key := CacheKey(r, "ex-200")
	if KeyEquipment(key) != "ex-200" {
		t.Fatalf("unexpected unit for %q", key)
	}
	if !MatchesEquipment(key, "ex-200") || MatchesEquipment(key, "ex-300") {
		t.Fatalf("equipment match broken for %q", key)
	}
	if !MatchesEquipment(CacheKey(r, ""), "ex-300") {
		t.Fatalf("default keys must match every unit")
	}
}

func TestEntryCovers(t *testing.T) {
	free := Entry{Result: Result{Available: true}, Detail: DetailVerdict}
	if !free.Covers(true, 5, false) {
		t.Fatalf("available verdict needs no searches")
	}
	if free.Covers(false, 5, true) {
		t.Fatalf("entry without pricing cannot answer a pricing request")
	}
	busyVerdict := Entry{Result: Result{Available: false}, Detail: DetailVerdict}
	if busyVerdict.Covers(false, 5, false) {
		t.Fatalf("verdict-only entry lacks the next-date search")
	}
	busyNoAlts := Entry{Result: Result{Available: false}, Detail: DetailFull}
	if !busyNoAlts.Covers(false, 5, false) {
		t.Fatalf("full entry covers requests without alternatives")
	}
	if busyNoAlts.Covers(true, 3, false) {
		t.Fatalf("entry searched without alternatives cannot answer an alternatives request")
	}
	busyThree := Entry{Result: Result{Available: false}, Detail: DetailFull, AlternativesLimit: 3}
	if !busyThree.Covers(true, 2, false) || busyThree.Covers(true, 5, false) {
		t.Fatalf("alternatives limit not honored")
	}
}
