package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lifeline/pkg/domain-errors"
)

func newMatched(donor, organ, recipient string) *Match {
	return &Match{
		DonorID:            donor,
		OrganID:            organ,
		RecipientID:        recipient,
		DonorBloodType:     "O+",
		RecipientBloodType: "A+",
		OrganType:          OrganKidney,
		Score:              1.0,
		Status:             StatusMatched,
	}
}

func TestInMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	t.Run("create assigns id and timestamp", func(t *testing.T) {
		m := newMatched("d1", "o1", "r1")
		require.NoError(t, store.Create(ctx, m))
		assert.Equal(t, int64(1), m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	})

	t.Run("get missing id is not found", func(t *testing.T) {
		_, err := store.Get(ctx, 9999)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("create rejects invalid status", func(t *testing.T) {
		m := newMatched("d1", "o1", "r1")
		m.Status = Status("bogus")
		err := store.Create(ctx, m)
		assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
	})

	t.Run("delete reports existence", func(t *testing.T) {
		m := newMatched("d2", "o2", "r2")
		require.NoError(t, store.Create(ctx, m))
		require.NoError(t, store.Delete(ctx, m.ID))
		err := store.Delete(ctx, m.ID)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestInMemoryStoreUpdatePartial(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m := newMatched("d1", "o1", "r1")
	require.NoError(t, store.Create(ctx, m))

	t.Run("only supplied fields change", func(t *testing.T) {
		status := StatusAccepted
		updated, err := store.Update(ctx, m.ID, UpdateParams{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, updated.Status)
		assert.Equal(t, "d1", updated.DonorID)
		assert.Equal(t, "o1", updated.OrganID)
		assert.Equal(t, 1.0, updated.Score)
		assert.Equal(t, m.CreatedAt, updated.CreatedAt)
	})

	t.Run("terminal status cannot transition", func(t *testing.T) {
		status := StatusDeclined
		_, err := store.Update(ctx, m.ID, UpdateParams{Status: &status})
		assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	})

	t.Run("matched allocation cannot be re-pointed", func(t *testing.T) {
		m2 := newMatched("d2", "o2", "r2")
		require.NoError(t, store.Create(ctx, m2))
		other := "r-other"
		_, err := store.Update(ctx, m2.ID, UpdateParams{RecipientID: &other})
		assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	})

	t.Run("update on missing id is not found", func(t *testing.T) {
		_, err := store.Update(ctx, 424242, UpdateParams{})
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestInMemoryStoreListPagination(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 0; i < 5; i++ {
		donor := "dA"
		if i%2 == 1 {
			donor = "dB"
		}
		require.NoError(t, store.Create(ctx, newMatched(donor, "o", "r")))
	}

	t.Run("pages concatenate into the full set", func(t *testing.T) {
		var seen []int64
		for offset := 0; ; offset += 2 {
			page, err := store.List(ctx, Filter{Limit: 2, Offset: offset})
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			for _, m := range page {
				seen = append(seen, m.ID)
			}
		}
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
	})

	t.Run("equality filters compose with AND", func(t *testing.T) {
		page, err := store.List(ctx, Filter{DonorID: "dB", RecipientID: "r", Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 2)
		for _, m := range page {
			assert.Equal(t, "dB", m.DonorID)
		}

		page, err = store.List(ctx, Filter{DonorID: "dB", RecipientID: "nobody", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("count honors filters", func(t *testing.T) {
		n, err := store.Count(ctx, Filter{DonorID: "dA"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("offset past the end is empty not an error", func(t *testing.T) {
		page, err := store.List(ctx, Filter{Limit: 2, Offset: 50})
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}
