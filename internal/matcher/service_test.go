package matcher

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/events"
	"lifeline/internal/match"
	"lifeline/internal/offer"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/registry"
	dErrors "lifeline/pkg/domain-errors"
)

// fakeRegistry implements registry.Client over in-memory slices and records
// deletions, so tests can assert consumption without HTTP.
type fakeRegistry struct {
	mu     sync.Mutex
	organs []registry.Organ
	needs  []registry.Need

	listErr       error
	failOrganDel  map[string]bool
	deletedOrgans []string
	deletedNeeds  []string
}

func (f *fakeRegistry) ListOrgans(context.Context) ([]registry.Organ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]registry.Organ{}, f.organs...), nil
}

func (f *fakeRegistry) ListNeeds(context.Context) ([]registry.Need, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registry.Need{}, f.needs...), nil
}

func (f *fakeRegistry) DeleteOrgan(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOrganDel[id] {
		return dErrors.New(dErrors.CodeUpstreamUnavailable, "donor registry returned 500")
	}
	f.deletedOrgans = append(f.deletedOrgans, id)
	for i, o := range f.organs {
		if o.ID == id {
			f.organs = append(f.organs[:i], f.organs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRegistry) DeleteNeed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedNeeds = append(f.deletedNeeds, id)
	for i, n := range f.needs {
		if n.ID == id {
			f.needs = append(f.needs[:i], f.needs[i+1:]...)
			break
		}
	}
	return nil
}

type fixture struct {
	svc       *Service
	registry  *fakeRegistry
	matches   *match.InMemoryStore
	offers    *offer.InMemoryStore
	publisher *events.MemoryPublisher
}

func newFixture(reg *fakeRegistry) fixture {
	matches := match.NewInMemoryStore()
	offers := offer.NewInMemoryStore(matches)
	publisher := events.NewMemoryPublisher()
	m := metrics.NewWith(prometheus.NewRegistry())
	svc := NewService(reg, matches, offers, publisher, m, slog.New(slog.DiscardHandler))
	return fixture{svc: svc, registry: reg, matches: matches, offers: offers, publisher: publisher}
}

func TestMatchAndConsumeCompatiblePair(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{{ID: "o1", DonorID: "d1", Type: match.OrganKidney, BloodType: "O+"}},
		needs:  []registry.Need{{ID: "n1", RecipientID: "r1", OrganType: match.OrganKidney, BloodType: "A+"}},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, match.StatusMatched, res.Status)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "d1", res.DonorID)
	assert.Equal(t, "r1", res.RecipientID)

	stored, err := f.matches.Get(context.Background(), res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, "O+", stored.DonorBloodType)
	assert.Equal(t, "A+", stored.RecipientBloodType)

	offers, err := f.offers.ListByMatch(context.Background(), res.MatchID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, offer.StatusPending, offers[0].Status)
	assert.Equal(t, "r1", offers[0].RecipientID)

	evs := f.publisher.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, res.MatchID, evs[0].MatchID)
	assert.Equal(t, "o1", evs[0].OrganID)
	assert.Equal(t, "kidney", evs[0].OrganType)
	assert.NotEmpty(t, evs[0].Message)

	assert.Equal(t, []string{"o1"}, reg.deletedOrgans)
	assert.Equal(t, []string{"n1"}, reg.deletedNeeds)

	organs, err := reg.ListOrgans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, organs, "consumed organ must leave the registry")
}

func TestMatchAndConsumeOrganTypeMismatch(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{{ID: "o1", DonorID: "d1", Type: match.OrganHeart, BloodType: "A+"}},
		needs:  []registry.Need{{ID: "n1", RecipientID: "r1", OrganType: match.OrganKidney, BloodType: "A+"}},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, reg.deletedOrgans, "mismatched organ stays available")
	assert.Empty(t, reg.deletedNeeds)
	assert.Empty(t, f.publisher.Events())
}

func TestMatchAndConsumeBloodIncompatible(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{{ID: "o1", DonorID: "d1", Type: match.OrganLiver, BloodType: "AB+"}},
		needs:  []registry.Need{{ID: "n1", RecipientID: "r1", OrganType: match.OrganLiver, BloodType: "A+"}},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results, "AB donor can only give to AB")
	assert.Empty(t, reg.deletedOrgans)
}

func TestMatchAndConsumeNoDoubleConsumption(t *testing.T) {
	// Two organs compete for a single need; the second organ must be skipped.
	reg := &fakeRegistry{
		organs: []registry.Organ{
			{ID: "o1", DonorID: "d1", Type: match.OrganKidney, BloodType: "O+"},
			{ID: "o2", DonorID: "d2", Type: match.OrganKidney, BloodType: "O-"},
		},
		needs: []registry.Need{{ID: "n1", RecipientID: "r1", OrganType: match.OrganKidney, BloodType: "B+"}},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "o1", results[0].OrganID)
	assert.Equal(t, []string{"n1"}, reg.deletedNeeds)
}

func TestMatchAndConsumeUrgencyWinsFirstFit(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{{ID: "o1", DonorID: "d1", Type: match.OrganLung, BloodType: "O+"}},
		needs: []registry.Need{
			{ID: "n-low", RecipientID: "r-low", OrganType: match.OrganLung, BloodType: "A+", Urgency: 1},
			{ID: "n-high", RecipientID: "r-high", OrganType: match.OrganLung, BloodType: "B+", Urgency: 9},
		},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r-high", results[0].RecipientID)
}

func TestMatchAndConsumeSnapshotFailureAbortsPass(t *testing.T) {
	reg := &fakeRegistry{
		listErr: dErrors.New(dErrors.CodeUpstreamUnavailable, "donor registry unreachable"),
	}
	f := newFixture(reg)

	_, err := f.svc.MatchAndConsume(context.Background())
	assert.True(t, dErrors.Is(err, dErrors.CodeUpstreamUnavailable))
}

func TestMatchAndConsumeDeleteFailureSkipsPairOnly(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{
			{ID: "o1", DonorID: "d1", Type: match.OrganKidney, BloodType: "O+"},
			{ID: "o2", DonorID: "d2", Type: match.OrganHeart, BloodType: "O+"},
		},
		needs: []registry.Need{
			{ID: "n1", RecipientID: "r1", OrganType: match.OrganKidney, BloodType: "A+"},
			{ID: "n2", RecipientID: "r2", OrganType: match.OrganHeart, BloodType: "A+"},
		},
		failOrganDel: map[string]bool{"o1": true},
	}
	f := newFixture(reg)

	results, err := f.svc.MatchAndConsume(context.Background())
	require.NoError(t, err, "a failed pair must not fail the pass")
	require.Len(t, results, 1)
	assert.Equal(t, "o2", results[0].OrganID)

	// The failed pair's match is still durable: the partial-consumption
	// window is accepted, not rolled back.
	matches, err := f.matches.List(context.Background(), match.Filter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMatchAndConsumeSerializesConcurrentPasses(t *testing.T) {
	reg := &fakeRegistry{
		organs: []registry.Organ{{ID: "o1", DonorID: "d1", Type: match.OrganKidney, BloodType: "O+"}},
		needs:  []registry.Need{{ID: "n1", RecipientID: "r1", OrganType: match.OrganKidney, BloodType: "A+"}},
	}
	f := newFixture(reg)

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := f.svc.MatchAndConsume(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			total += len(results)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total, "only one pass may consume the single pair")
	assert.Equal(t, []string{"o1"}, reg.deletedOrgans)
}
