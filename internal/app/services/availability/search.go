package availability

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	domainavailability "equiprent/internal/domain/availability"
	"equiprent/internal/domain/shared/daterange"
	"equiprent/internal/domain/shared/money"
)

var alternativeOffsets = []int{1, 2, 3, 7, 14}

type candidate struct {
	rng     daterange.DateRange
	offset  int
	earlier bool
}

func (c candidate) alternative() domainavailability.Alternative {
	unit := "days"
	if c.offset == 1 {
		unit = "day"
	}
	direction, savings := "later", min(c.offset*5, 25)
	if c.earlier {
		direction, savings = "earlier", min(c.offset*10, 50)
	}
	return domainavailability.Alternative{
		Range:   c.rng,
		Reason:  fmt.Sprintf("%d %s %s", c.offset, unit, direction),
		Savings: money.Dollars(int64(savings), money.DefaultCurrency),
	}
}

// alternativeCandidates lists same-duration ranges in search order: offsets
// ascending, earlier before later. Earlier ranges starting before today are left out.
func (s *Service) alternativeCandidates(dr daterange.DateRange) []candidate {
	today := s.today()
	out := make([]candidate, 0, 2*len(alternativeOffsets))
	for _, offset := range alternativeOffsets {
		if earlier := dr.Shift(-offset); !earlier.Start.Before(today) {
			out = append(out, candidate{rng: earlier, offset: offset, earlier: true})
		}
		out = append(out, candidate{rng: dr.Shift(offset), offset: offset})
	}
	return out
}

// alternatives collects up to limit free candidates using uncached conflict reads.
func (s *Service) alternatives(ctx context.Context, dr daterange.DateRange, equipmentID string, limit int) []domainavailability.Alternative {
	candidates := s.alternativeCandidates(dr)
	var out []domainavailability.Alternative
	s.probeInWaves(ctx, len(candidates), func(ctx context.Context, i int) bool {
		free, err := s.isFree(ctx, equipmentID, candidates[i].rng)
		if err != nil {
			s.logger().Debug("alternative probe failed", "range", candidates[i].rng.String(), "error", err)
			return false
		}
		return free
	}, func(i int) bool {
		out = append(out, candidates[i].alternative())
		return len(out) >= limit
	})
	return out
}

// nextAvailable scans the following days for the first free start of the same
// duration. Probes go through the cache so repeated scans stay cheap.
func (s *Service) nextAvailable(ctx context.Context, dr daterange.DateRange, keyEquipment, equipmentID string) *time.Time {
	var found *time.Time
	s.probeInWaves(ctx, nextDateHorizonDays, func(ctx context.Context, i int) bool {
		return s.probe(ctx, dr.Shift(i+1), keyEquipment, equipmentID)
	}, func(i int) bool {
		start := dr.Shift(i + 1).Start
		found = &start
		return true
	})
	return found
}

// probe answers "is r free" from the cache or a conflict read, caching the verdict.
// Failures count as not free.
func (s *Service) probe(ctx context.Context, r daterange.DateRange, keyEquipment, equipmentID string) bool {
	key := domainavailability.CacheKey(r, keyEquipment)
	if entry, ok := s.lookup(ctx, key); ok {
		return entry.Result.Available
	}
	free, err := s.isFree(ctx, equipmentID, r)
	if err != nil {
		s.logger().Debug("next date probe failed", "range", r.String(), "error", err)
		return false
	}
	s.store(ctx, key, domainavailability.Entry{
		Result:   domainavailability.Verdict(r, equipmentID, free),
		StoredAt: s.now(),
		Detail:   domainavailability.DetailVerdict,
	})
	return free
}

// probeInWaves runs probe for indexes [0, n) in consecutive waves of at most
// ProbeConcurrency goroutines. After each wave, accept is called in index order
// for every successful probe; returning true from accept stops the search.
func (s *Service) probeInWaves(ctx context.Context, n int, probe func(context.Context, int) bool, accept func(int) bool) {
	size := s.ProbeConcurrency
	if size <= 0 {
		size = DefaultProbeConcurrency
	}
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		free := make([]bool, end-start)
		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			g.Go(func() error {
				free[i-start] = probe(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
		for i := start; i < end; i++ {
			if free[i-start] && accept(i) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
