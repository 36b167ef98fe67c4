package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/queries"
	availabilitysvc "equiprent/internal/app/services/availability"
	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
	memcache "equiprent/internal/infra/cache/memory"
	"equiprent/internal/infra/storage/memory"
)

type capturePublisher struct {
	names []string
}

func (p *capturePublisher) Publish(ctx context.Context, rec outbox.EventRecord) error {
	p.names = append(p.names, rec.Name)
	return nil
}

type harness struct {
	cmds commands.Bus
	qs   queries.Bus
	pub  *capturePublisher
}

func newHarness(t *testing.T) harness {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	catalog := memory.NewEquipmentRepository()
	if err := catalog.Save(ctx, &domainequipment.Equipment{ID: "ex-200", Name: "Mini excavator", DailyRate: money.Dollars(450, "CAD")}); err != nil {
		t.Fatalf("save equipment: %v", err)
	}
	bookings := memory.NewBookingRepository()
	rng, _ := daterange.Parse("2025-06-10", "2025-06-10")
	if err := bookings.Save(ctx, domainbooking.Booking{ID: "b-1", EquipmentID: "ex-200", Range: rng, Status: domainbooking.StatusConfirmed}); err != nil {
		t.Fatalf("save booking: %v", err)
	}
	cache := memcache.NewCache(time.Minute, 100)
	cache.Now = now
	svc := &availabilitysvc.Service{Bookings: bookings, Equipment: catalog, Cache: cache, Now: now}

	pub := &capturePublisher{}
	box := &outbox.Buffer{Publisher: pub}
	cmdReg := commands.NewRegistry()
	qReg := queries.NewRegistry()
	Register(cmdReg, qReg, svc, box)

	return harness{
		cmds: middleware.ChainCommands(cmdReg,
			middleware.Authorization(middleware.AdminOnly{}),
			middleware.Validation(),
			middleware.OutboxFlush(box, nil),
		),
		qs:  middleware.ChainQueries(qReg, middleware.QueryValidation()),
		pub: pub,
	}
}

func TestCheckAvailabilityQuery_MapsResult(t *testing.T) {
	h := newHarness(t)

	got, err := queries.Ask[CheckAvailabilityQuery, dto.Availability](context.Background(), h.qs, CheckAvailabilityQuery{
		StartDate:           "2025-06-10",
		EndDate:             "2025-06-10",
		IncludeAlternatives: true,
		MaxAlternatives:     2,
		IncludePricing:      true,
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got.Available || got.Confidence != "high" {
		t.Fatalf("unexpected verdict %+v", got)
	}
	if len(got.Alternatives) != 2 || got.Alternatives[0].StartDate != "2025-06-09" {
		t.Fatalf("unexpected alternatives %+v", got.Alternatives)
	}
	if got.NextAvailableDate != "2025-06-11" {
		t.Fatalf("unexpected next date %q", got.NextAvailableDate)
	}
	if got.Pricing == nil || got.Pricing.Total.AmountCents != 45000 {
		t.Fatalf("unexpected pricing %+v", got.Pricing)
	}
}

func TestCheckAvailabilityQuery_RejectsInvalidRange(t *testing.T) {
	h := newHarness(t)

	_, err := queries.Ask[CheckAvailabilityQuery, dto.Availability](context.Background(), h.qs, CheckAvailabilityQuery{StartDate: "2025-06-10", EndDate: "2025-06-01"})
	if !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	_, err = queries.Ask[CheckAvailabilityQuery, dto.Availability](context.Background(), h.qs, CheckAvailabilityQuery{StartDate: "2025-06-10", EndDate: "2025-06-11", MaxAlternatives: -1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSmartSuggestionsQuery(t *testing.T) {
	h := newHarness(t)

	got, err := queries.Ask[SmartSuggestionsQuery, dto.Suggestions](context.Background(), h.qs, SmartSuggestionsQuery{Preferences: availabilitysvc.DefaultPreferences()})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(got.Items) == 0 || got.Items[0].Title != "Next Weekend" {
		t.Fatalf("unexpected suggestions %+v", got.Items)
	}
}

func TestCacheCommands_RequireAdmin(t *testing.T) {
	h := newHarness(t)

	_, err := commands.Dispatch[ClearCacheCommand, dto.CacheInvalidation](context.Background(), h.cmds, ClearCacheCommand{})
	if !errors.Is(err, middleware.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestInvalidateEquipmentCommand_BroadcastsAfterSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := middleware.WithActor(context.Background(), middleware.Actor{Name: "ops", Admin: true})

	if _, err := queries.Ask[CheckAvailabilityQuery, dto.Availability](ctx, h.qs, CheckAvailabilityQuery{StartDate: "2025-06-01", EndDate: "2025-06-02"}); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	res, err := commands.Dispatch[InvalidateEquipmentCommand, dto.CacheInvalidation](ctx, h.cmds, InvalidateEquipmentCommand{EquipmentID: "ex-200", Source: "test", Broadcast: true})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Removed != 1 {
		t.Fatalf("expected the default-key entry to be removed, got %d", res.Removed)
	}
	if len(h.pub.names) != 1 || h.pub.names[0] != "availability.cache_invalidated" {
		t.Fatalf("unexpected published events %v", h.pub.names)
	}

	stats, err := queries.Ask[CacheStatsQuery, dto.CacheStats](ctx, h.qs, CacheStatsQuery{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Size != 0 {
		t.Fatalf("expected empty cache, got %+v", stats)
	}

	if _, err := commands.Dispatch[InvalidateEquipmentCommand, dto.CacheInvalidation](ctx, h.cmds, InvalidateEquipmentCommand{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(h.pub.names) != 1 {
		t.Fatalf("failed commands must not publish")
	}
}

func TestClearCacheCommand_WithoutBroadcast(t *testing.T) {
	h := newHarness(t)
	ctx := middleware.WithActor(context.Background(), middleware.Actor{Name: "ops", Admin: true})

	res, err := commands.Dispatch[ClearCacheCommand, dto.CacheInvalidation](ctx, h.cmds, ClearCacheCommand{Source: "test"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Cleared || len(h.pub.names) != 0 {
		t.Fatalf("unexpected result %+v events %v", res, h.pub.names)
	}
}
