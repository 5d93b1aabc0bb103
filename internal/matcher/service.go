package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lifeline/internal/events"
	"lifeline/internal/match"
	"lifeline/internal/offer"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/registry"
)

// Result summarizes one match created during a pass.
type Result struct {
	MatchID     int64           `json:"match_id"`
	DonorID     string          `json:"donor_id"`
	OrganID     string          `json:"organ_id"`
	RecipientID string          `json:"recipient_id"`
	OrganType   match.OrganType `json:"organ_type"`
	Score       float64         `json:"score"`
	Status      match.Status    `json:"status"`
}

// Service orchestrates a matching pass: snapshot both registries, pair organs
// with compatible needs first-fit, persist the decision, emit the event, and
// consume the matched resources.
//
// Passes are serialized with an in-process mutex so two concurrent callers
// cannot both consume the same organ/need pair. Scaling beyond one process
// needs an external advisory lock in front of this service.
type Service struct {
	mu        sync.Mutex
	registry  registry.Client
	matches   match.Store
	offers    offer.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(
	reg registry.Client,
	matches match.Store,
	offers offer.Store,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:  reg,
		matches:   matches,
		offers:    offers,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("lifeline/matcher"),
	}
}

// candidate tracks a need through one pass so it is consumed at most once.
type candidate struct {
	need     registry.Need
	consumed bool
}

// MatchAndConsume runs one matching pass and returns the matches it created.
// A registry snapshot failure aborts the whole pass; a failure while
// processing one organ/need pair only abandons that pair.
func (s *Service) MatchAndConsume(ctx context.Context) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "matcher.pass")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.MatchingPassSecs.Observe(time.Since(start).Seconds()) }()

	organs, needs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("organs", len(organs)),
		attribute.Int("needs", len(needs)),
	)

	// The snapshot order decides organ priority; within a pass the most
	// urgent need wins among equally compatible candidates.
	pool := make([]candidate, len(needs))
	for i, n := range needs {
		pool[i] = candidate{need: n}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].need.Urgency > pool[j].need.Urgency
	})

	results := []Result{}
	for _, organ := range organs {
		idx := s.firstFit(pool, organ)
		if idx < 0 {
			continue
		}
		// Consumed in-pass regardless of downstream outcome so the same need
		// is never paired twice in one pass.
		pool[idx].consumed = true

		res, err := s.allocate(ctx, organ, pool[idx].need)
		if err != nil {
			s.logger.ErrorContext(ctx, "allocation failed, skipping pair",
				"organ_id", organ.ID,
				"need_id", pool[idx].need.ID,
				"error", err.Error(),
			)
			continue
		}
		results = append(results, res)
	}

	return results, nil
}

// snapshot fetches both inventories concurrently. Either failure aborts.
func (s *Service) snapshot(ctx context.Context) ([]registry.Organ, []registry.Need, error) {
	ctx, span := s.tracer.Start(ctx, "matcher.snapshot")
	defer span.End()

	var organs []registry.Organ
	var needs []registry.Need
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		organs, err = s.registry.ListOrgans(gctx)
		if err != nil {
			s.metrics.RegistryCallErrors.WithLabelValues("donor").Inc()
		}
		return err
	})
	g.Go(func() error {
		var err error
		needs, err = s.registry.ListNeeds(gctx)
		if err != nil {
			s.metrics.RegistryCallErrors.WithLabelValues("recipient").Inc()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return organs, needs, nil
}

func (s *Service) firstFit(pool []candidate, organ registry.Organ) int {
	for i := range pool {
		if pool[i].consumed {
			continue
		}
		if pool[i].need.OrganType != organ.Type {
			continue
		}
		if !Compatible(organ.BloodType, pool[i].need.BloodType) {
			continue
		}
		return i
	}
	return -1
}

// allocate persists the match and its offer, emits the event, then retires
// both resources from their registries. A persistence or delete failure
// abandons the pair; already-committed writes are not rolled back (accepted
// inconsistency window, reconciled out of band).
func (s *Service) allocate(ctx context.Context, organ registry.Organ, need registry.Need) (Result, error) {
	m := &match.Match{
		DonorID:            organ.DonorID,
		OrganID:            organ.ID,
		RecipientID:        need.RecipientID,
		DonorBloodType:     organ.BloodType,
		RecipientBloodType: need.BloodType,
		OrganType:          organ.Type,
		Score:              1.0, // sentinel for "compatible", not a weighted score
		Status:             match.StatusMatched,
	}
	if err := s.matches.Create(ctx, m); err != nil {
		return Result{}, fmt.Errorf("persist match: %w", err)
	}
	s.metrics.MatchesCreated.Inc()

	o := &offer.Offer{
		MatchID:     m.ID,
		RecipientID: need.RecipientID,
		Status:      offer.StatusPending,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		return Result{}, fmt.Errorf("persist offer for match %d: %w", m.ID, err)
	}
	s.metrics.OffersCreated.Inc()

	ev := events.MatchEvent{
		MatchID:     m.ID,
		DonorID:     m.DonorID,
		OrganID:     m.OrganID,
		RecipientID: m.RecipientID,
		OrganType:   string(m.OrganType),
		Message:     fmt.Sprintf("organ %s matched to recipient %s", m.OrganID, m.RecipientID),
	}
	if err := s.publisher.PublishMatch(ctx, ev); err != nil {
		// Event loss is tolerated; the match itself is already durable.
		s.logger.WarnContext(ctx, "match event publish failed",
			"match_id", m.ID,
			"error", err.Error(),
		)
	} else {
		s.metrics.EventsPublished.Inc()
	}

	if err := s.registry.DeleteOrgan(ctx, organ.ID); err != nil {
		s.metrics.RegistryCallErrors.WithLabelValues("donor").Inc()
		return Result{}, fmt.Errorf("consume organ %s: %w", organ.ID, err)
	}
	if err := s.registry.DeleteNeed(ctx, need.ID); err != nil {
		s.metrics.RegistryCallErrors.WithLabelValues("recipient").Inc()
		return Result{}, fmt.Errorf("consume need %s: %w", need.ID, err)
	}

	return Result{
		MatchID:     m.ID,
		DonorID:     m.DonorID,
		OrganID:     m.OrganID,
		RecipientID: m.RecipientID,
		OrganType:   m.OrganType,
		Score:       m.Score,
		Status:      m.Status,
	}, nil
}
