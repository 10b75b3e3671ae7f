package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFetches(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.RecordFetch(ctx, createTestRecord("workouts", 1)))
	require.NoError(t, s.RecordFetch(ctx, createTestRecord("exercises", 2)))
	require.NoError(t, s.RecordFetch(ctx, createFailedRecord("workouts")))
	require.NoError(t, s.RecordFetch(ctx, createTestRecord("workouts", 4)))
}

func TestListFetches_Empty(t *testing.T) {
	s := createTestStore(t)

	fetches, err := s.ListFetches(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, fetches)
	assert.Empty(t, fetches)
}

func TestListFetches_Filters(t *testing.T) {
	s := createTestStore(t)
	seedFetches(t, s)

	testCases := []struct {
		name  string
		opts  ListOptions
		seqs  []int64
		items []int
	}{
		{"all", ListOptions{}, []int64{1, 2, 3, 4}, []int{1, 2, 0, 4}},
		{"endpoint", ListOptions{Endpoint: "workouts"}, []int64{1, 3, 4}, []int{1, 0, 4}},
		{"failed only", ListOptions{FailedOnly: true}, []int64{3}, []int{0}},
		{"limit keeps most recent in order", ListOptions{Limit: 2}, []int64{3, 4}, []int{0, 4}},
		{"endpoint and limit", ListOptions{Endpoint: "workouts", Limit: 1}, []int64{4}, []int{4}},
		{"no match", ListOptions{Endpoint: "nothing"}, []int64{}, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetches, err := s.ListFetches(context.Background(), tc.opts)
			require.NoError(t, err)

			seqs := []int64{}
			items := []int{}
			for _, f := range fetches {
				seqs = append(seqs, f.Seq)
				items = append(items, f.Items)
			}
			assert.Equal(t, tc.seqs, seqs)
			assert.Equal(t, tc.items, items)
		})
	}
}

func TestGetFetch(t *testing.T) {
	s := createTestStore(t)
	seedFetches(t, s)
	ctx := context.Background()

	all, err := s.ListFetches(ctx, ListOptions{})
	require.NoError(t, err)

	got, ok, err := s.GetFetch(ctx, all[1].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, all[1], got)

	_, ok, err = s.GetFetch(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	seedFetches(t, s)
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
