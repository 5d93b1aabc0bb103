//go:build integration

package offer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lifeline/internal/match"
	"lifeline/internal/offer"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	matches  *match.PostgresStore
	store    *offer.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.matches = match.NewPostgres(s.postgres.DB)
	s.store = offer.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "offers", "matches")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedMatch() *match.Match {
	m := &match.Match{
		DonorID:            "d1",
		OrganID:            "o1",
		RecipientID:        "r1",
		DonorBloodType:     "O+",
		RecipientBloodType: "A+",
		OrganType:          match.OrganKidney,
		Score:              1.0,
		Status:             match.StatusMatched,
	}
	s.Require().NoError(s.matches.Create(context.Background(), m))
	return m
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	m := s.seedMatch()

	o := &offer.Offer{MatchID: m.ID, RecipientID: "r1", Status: offer.StatusPending}
	s.Require().NoError(s.store.Create(ctx, o))
	s.Positive(o.ID)
	s.False(o.CreatedAt.IsZero())
	s.Equal(o.CreatedAt, o.UpdatedAt)

	got, err := s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(m.ID, got.MatchID)
	s.Equal("r1", got.RecipientID)
}

func (s *PostgresStoreSuite) TestCreateMissingMatchIsBadRequest() {
	ctx := context.Background()

	o := &offer.Offer{MatchID: 9999, Status: offer.StatusPending}
	err := s.store.Create(ctx, o)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *PostgresStoreSuite) TestEmptyRecipientRoundTrips() {
	ctx := context.Background()
	m := s.seedMatch()

	o := &offer.Offer{MatchID: m.ID, Status: offer.StatusPending}
	s.Require().NoError(s.store.Create(ctx, o))

	got, err := s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Empty(got.RecipientID)
}

func (s *PostgresStoreSuite) TestUpdateRefreshesUpdatedAt() {
	ctx := context.Background()
	m := s.seedMatch()

	o := &offer.Offer{MatchID: m.ID, RecipientID: "r1", Status: offer.StatusPending}
	s.Require().NoError(s.store.Create(ctx, o))

	time.Sleep(10 * time.Millisecond)
	accepted := offer.StatusAccepted
	got, err := s.store.Update(ctx, o.ID, offer.UpdateParams{Status: &accepted})
	s.Require().NoError(err)
	s.Equal(offer.StatusAccepted, got.Status)
	s.Equal("r1", got.RecipientID, "nil recipient keeps prior value")
	s.True(got.UpdatedAt.After(o.UpdatedAt))
}

func (s *PostgresStoreSuite) TestUpdateClearsRecipientWhenEmptySupplied() {
	ctx := context.Background()
	m := s.seedMatch()

	o := &offer.Offer{MatchID: m.ID, RecipientID: "r1", Status: offer.StatusPending}
	s.Require().NoError(s.store.Create(ctx, o))

	empty := ""
	got, err := s.store.Update(ctx, o.ID, offer.UpdateParams{RecipientID: &empty})
	s.Require().NoError(err)
	s.Empty(got.RecipientID, "supplied empty recipient clears the field")

	got, err = s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Empty(got.RecipientID)
}

func (s *PostgresStoreSuite) TestDeleteCascadesFromMatch() {
	ctx := context.Background()
	m := s.seedMatch()

	o := &offer.Offer{MatchID: m.ID, Status: offer.StatusPending}
	s.Require().NoError(s.store.Create(ctx, o))

	s.Require().NoError(s.matches.Delete(ctx, m.ID))

	_, err := s.store.Get(ctx, o.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestListByMatch() {
	ctx := context.Background()
	m1 := s.seedMatch()
	m2 := &match.Match{
		DonorID:            "d2",
		OrganID:            "o2",
		RecipientID:        "r2",
		DonorBloodType:     "A+",
		RecipientBloodType: "AB+",
		OrganType:          match.OrganHeart,
		Score:              1.0,
		Status:             match.StatusMatched,
	}
	s.Require().NoError(s.matches.Create(ctx, m2))

	for i := 0; i < 2; i++ {
		s.Require().NoError(s.store.Create(ctx, &offer.Offer{MatchID: m1.ID, Status: offer.StatusPending}))
	}
	s.Require().NoError(s.store.Create(ctx, &offer.Offer{MatchID: m2.ID, Status: offer.StatusPending}))

	got, err := s.store.ListByMatch(ctx, m1.ID)
	s.Require().NoError(err)
	s.Len(got, 2)
	for _, o := range got {
		s.Equal(m1.ID, o.MatchID)
	}

	total, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, total)
}
