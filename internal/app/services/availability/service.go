package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainavailability "equiprent/internal/domain/availability"
	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

const (
	DefaultMaxAlternatives  = 5
	DefaultQueryTimeout     = 3 * time.Second
	DefaultProbeConcurrency = 4

	maxAlternativesCeiling = 5
	nextDateHorizonDays    = 30
)

var tracer = otel.Tracer("equiprent/availability")

// Options tune a single availability check.
type Options struct {
	EquipmentID         string
	IncludeAlternatives bool
	MaxAlternatives     int
	IncludePricing      bool
	// IncludeSmartSuggestions is accepted from callers but has no effect yet.
	IncludeSmartSuggestions bool
}

func (o Options) maxAlternatives() int {
	if o.MaxAlternatives <= 0 {
		return DefaultMaxAlternatives
	}
	if o.MaxAlternatives > maxAlternativesCeiling {
		return maxAlternativesCeiling
	}
	return o.MaxAlternatives
}

// Service answers availability questions for rentable equipment.
type Service struct {
	Bookings         domainbooking.ConflictReader
	Equipment        domainequipment.Catalog
	Cache            domainavailability.Cache
	Logger           *slog.Logger
	Now              func() time.Time
	Location         *time.Location
	QueryTimeout     time.Duration
	ProbeConcurrency int
}

// CheckAvailability parses the YYYY-MM-DD bounds and returns the verdict for them.
// The only error is a wrapped daterange.ErrInvalidRange; store failures are
// reported through a low-confidence result instead.
func (s *Service) CheckAvailability(ctx context.Context, startDate, endDate string, opts Options) (domainavailability.Result, error) {
	dr, err := daterange.Parse(startDate, endDate)
	if err != nil {
		return domainavailability.Result{}, fmt.Errorf("check availability: %w", err)
	}
	return s.Check(ctx, dr, opts), nil
}

// Check is CheckAvailability for an already validated range.
func (s *Service) Check(ctx context.Context, dr daterange.DateRange, opts Options) domainavailability.Result {
	ctx, span := tracer.Start(ctx, "availability.check", trace.WithAttributes(
		attribute.String("availability.range", dr.String()),
		attribute.String("availability.equipment_id", opts.EquipmentID),
	))
	defer span.End()

	key := domainavailability.CacheKey(dr, opts.EquipmentID)
	entry, hit := s.lookup(ctx, key)
	span.SetAttributes(attribute.Bool("availability.cache_hit", hit))
	if hit && entry.Covers(opts.IncludeAlternatives, opts.maxAlternatives(), opts.IncludePricing) {
		return view(entry.Result, opts)
	}

	var (
		res domainavailability.Result
		eq  *domainequipment.Equipment
	)
	if hit {
		res = domainavailability.Verdict(dr, entry.Result.EquipmentID, entry.Result.Available)
		res.Pricing = entry.Result.Pricing
	} else {
		var err error
		res, eq, err = s.evaluate(ctx, dr, opts.EquipmentID)
		if err != nil {
			span.RecordError(err)
			if errors.Is(err, domainequipment.ErrNoneConfigured) {
				s.logger().Warn("availability check without configured equipment", "range", dr.String())
				return domainavailability.Unverified(dr, domainavailability.MessageNotConfigured)
			}
			s.logger().Warn("availability check failed", "range", dr.String(), "equipment_id", opts.EquipmentID, "error", err)
			return domainavailability.Unverified(dr, domainavailability.MessageCheckFailed)
		}
	}

	if opts.IncludePricing && res.Pricing == nil {
		res.Pricing = s.pricing(ctx, res.EquipmentID, eq, dr)
	}
	stored := domainavailability.Entry{Detail: domainavailability.DetailFull}
	if !res.Available {
		if opts.IncludeAlternatives {
			stored.AlternativesLimit = opts.maxAlternatives()
			res.Alternatives = s.alternatives(ctx, dr, res.EquipmentID, stored.AlternativesLimit)
		}
		res.NextAvailableDate = s.nextAvailable(ctx, dr, opts.EquipmentID, res.EquipmentID)
	}
	stored.Result = res
	stored.StoredAt = s.now()
	s.store(ctx, key, stored)
	return view(res, opts)
}

func (s *Service) ClearCache(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Clear(ctx)
}

func (s *Service) CacheStats(ctx context.Context) (domainavailability.Stats, error) {
	if s.Cache == nil {
		return domainavailability.Stats{Keys: []string{}}, nil
	}
	stats, err := s.Cache.Stats(ctx)
	if err != nil {
		return domainavailability.Stats{}, err
	}
	if stats.Keys == nil {
		stats.Keys = []string{}
	}
	return stats, nil
}

// InvalidateEquipment drops cached verdicts that may involve the unit.
func (s *Service) InvalidateEquipment(ctx context.Context, equipmentID string) (int, error) {
	if s.Cache == nil {
		return 0, nil
	}
	return s.Cache.InvalidateEquipment(ctx, equipmentID)
}

// evaluate resolves the unit and runs the conflict read. The equipment record is
// returned only when it was loaded along the way.
func (s *Service) evaluate(ctx context.Context, dr daterange.DateRange, equipmentID string) (domainavailability.Result, *domainequipment.Equipment, error) {
	var eq *domainequipment.Equipment
	if equipmentID == "" {
		qctx, cancel := s.queryContext(ctx)
		found, err := s.Equipment.Default(qctx)
		cancel()
		if err != nil {
			return domainavailability.Result{}, nil, fmt.Errorf("resolve default equipment: %w", err)
		}
		eq = found
		equipmentID = found.ID
	}
	free, err := s.isFree(ctx, equipmentID, dr)
	if err != nil {
		return domainavailability.Result{}, nil, err
	}
	return domainavailability.Verdict(dr, equipmentID, free), eq, nil
}

func (s *Service) isFree(ctx context.Context, equipmentID string, dr daterange.DateRange) (bool, error) {
	ctx, span := tracer.Start(ctx, "availability.conflicts", trace.WithAttributes(
		attribute.String("availability.range", dr.String()),
		attribute.String("availability.equipment_id", equipmentID),
	))
	defer span.End()
	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	rows, err := s.Bookings.Conflicts(qctx, equipmentID, dr)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("conflict query: %w", err)
	}
	return len(domainbooking.Blocking(rows, dr)) == 0, nil
}

func (s *Service) pricing(ctx context.Context, equipmentID string, eq *domainequipment.Equipment, dr daterange.DateRange) *domainavailability.Pricing {
	if eq == nil {
		qctx, cancel := s.queryContext(ctx)
		found, err := s.Equipment.ByID(qctx, equipmentID)
		cancel()
		if err != nil {
			s.logger().Warn("pricing lookup failed", "equipment_id", equipmentID, "error", err)
			return nil
		}
		eq = found
	}
	rate := eq.DailyRate
	if rate.Currency == "" {
		rate.Currency = money.DefaultCurrency
	}
	days := dr.Days()
	return &domainavailability.Pricing{DailyRate: rate, Days: days, Total: rate.Multiply(int64(days))}
}

func (s *Service) lookup(ctx context.Context, key string) (domainavailability.Entry, bool) {
	if s.Cache == nil {
		return domainavailability.Entry{}, false
	}
	entry, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.logger().Warn("availability cache read failed", "key", key, "error", err)
		return domainavailability.Entry{}, false
	}
	return entry, ok
}

func (s *Service) store(ctx context.Context, key string, entry domainavailability.Entry) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, key, entry); err != nil {
		s.logger().Warn("availability cache write failed", "key", key, "error", err)
	}
}

// view trims a stored result to what the caller asked for.
func view(res domainavailability.Result, opts Options) domainavailability.Result {
	out := res.Copy()
	if !opts.IncludeAlternatives {
		out.Alternatives = nil
	} else if limit := opts.maxAlternatives(); len(out.Alternatives) > limit {
		out.Alternatives = out.Alternatives[:limit]
	}
	if !opts.IncludePricing {
		out.Pricing = nil
	}
	return out
}

func (s *Service) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// today is the current calendar date in the service's time zone.
func (s *Service) today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return daterange.Day(s.now().In(loc))
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
