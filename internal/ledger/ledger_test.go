package ledger

import (
	"testing"
	"time"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

func testLedger(maxEntries int) *Ledger {
	return New(config.LedgerConfig{
		MidTTL:     2 * time.Hour,
		HighTTL:    24 * time.Hour,
		MaxEntries: maxEntries,
	})
}

func TestRecordAndHasNotified(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	if l.HasNotified("addr1", models.TierMid, t0) {
		t.Fatalf("fresh ledger should report nothing notified")
	}
	l.Record("addr1", models.TierMid, t0)
	if !l.HasNotified("addr1", models.TierMid, t0.Add(time.Minute)) {
		t.Fatalf("recorded entry should be reported")
	}
	// Tiers are independent sets.
	if l.HasNotified("addr1", models.TierHigh, t0.Add(time.Minute)) {
		t.Fatalf("mid record must not leak into the high set")
	}
}

func TestRecordFirstWriteWins(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("addr1", models.TierMid, t0)
	// A duplicate record one hour later must not refresh the timestamp;
	// the entry still expires two hours after the original write.
	l.Record("addr1", models.TierMid, t0.Add(time.Hour))

	if !l.HasNotified("addr1", models.TierMid, t0.Add(2*time.Hour)) {
		t.Fatalf("entry should still be live exactly at the retention bound")
	}
	if l.HasNotified("addr1", models.TierMid, t0.Add(2*time.Hour+time.Second)) {
		t.Fatalf("duplicate record must not extend the original retention window")
	}
}

func TestExpiredEntryRecreated(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("addr1", models.TierMid, t0)
	t1 := t0.Add(3 * time.Hour)
	if l.HasNotified("addr1", models.TierMid, t1) {
		t.Fatalf("entry should have expired")
	}
	l.Record("addr1", models.TierMid, t1)
	if !l.HasNotified("addr1", models.TierMid, t1.Add(time.Hour)) {
		t.Fatalf("re-created entry should be live")
	}
}

func TestPromoteRetiresMidEntry(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("addr1", models.TierMid, t0)
	l.Record("addr1", models.TierHigh, t0.Add(time.Minute))
	l.Promote("addr1")

	if l.HasNotified("addr1", models.TierMid, t0.Add(2*time.Minute)) {
		t.Fatalf("promotion should retire the mid entry")
	}
	if !l.HasNotified("addr1", models.TierHigh, t0.Add(2*time.Minute)) {
		t.Fatalf("promotion must not touch the high entry")
	}
}

func TestSweep(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("old", models.TierMid, t0)
	l.Record("fresh", models.TierMid, t0.Add(90*time.Minute))
	l.Record("high", models.TierHigh, t0)

	l.Sweep(t0.Add(3 * time.Hour))

	mid, high := l.Sizes()
	if mid != 1 || high != 1 {
		t.Fatalf("mid=%d high=%d want=1,1 after sweep", mid, high)
	}
	if !l.HasNotified("fresh", models.TierMid, t0.Add(3*time.Hour)) {
		t.Fatalf("live entry should survive the sweep")
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	l := testLedger(2)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("a", models.TierMid, t0)
	l.Record("b", models.TierMid, t0.Add(time.Minute))
	l.Record("c", models.TierMid, t0.Add(2*time.Minute))

	at := t0.Add(3 * time.Minute)
	if l.HasNotified("a", models.TierMid, at) {
		t.Fatalf("oldest entry should have been evicted at capacity")
	}
	if !l.HasNotified("b", models.TierMid, at) || !l.HasNotified("c", models.TierMid, at) {
		t.Fatalf("newer entries should survive eviction")
	}
	// Each tier has its own capacity budget.
	l.Record("h1", models.TierHigh, at)
	mid, high := l.Sizes()
	if mid != 2 || high != 1 {
		t.Fatalf("mid=%d high=%d want=2,1", mid, high)
	}
}

func TestRecordUnknownTierIgnored(t *testing.T) {
	l := testLedger(0)
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	l.Record("addr1", models.TierNone, t0)
	mid, high := l.Sizes()
	if mid != 0 || high != 0 {
		t.Fatalf("mid=%d high=%d want=0,0 for tier none", mid, high)
	}
}
