package licensing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/testutil"
	"github.com/openregulatory/licensure/pkg/errors"
)

type fakeLocker struct {
	acquired  int
	released  int
	denyError error
}

func (l *fakeLocker) Acquire(_ context.Context) error {
	if l.denyError != nil {
		return l.denyError
	}
	l.acquired++
	return nil
}

func (l *fakeLocker) Release(_ context.Context) error {
	l.released++
	return nil
}

type fakeInvalidator struct {
	prefixes []string
}

func (i *fakeInvalidator) DeleteByPrefix(_ context.Context, prefix string) error {
	i.prefixes = append(i.prefixes, prefix)
	return nil
}

// flakyIndex fails for the listed IDs and records the rest.
type flakyIndex struct {
	fakeIndex
	failIDs map[string]bool
}

func (i *flakyIndex) Index(ctx context.Context, lic *domain.License) error {
	if i.failIDs[lic.ID] {
		return errors.New(errors.ErrCodeIndexingFailed, "mapping rejected document")
	}
	return i.fakeIndex.Index(ctx, lic)
}

func TestReindexer_Run(t *testing.T) {
	repo := newFakeRepo(
		&domain.License{ID: "lic-1", Compact: "aslp", Jurisdiction: "oh"},
		&domain.License{ID: "lic-2", Compact: "aslp", Jurisdiction: "oh"},
		&domain.License{ID: "lic-3", Compact: "aslp", Jurisdiction: "ky"},
	)
	idx := &fakeIndex{}
	locker := &fakeLocker{}
	inv := &fakeInvalidator{}

	r := NewReindexer(repo, idx, "aslp", []string{"oh", "ky"}, testutil.NewMockLogger(),
		WithReindexLock(locker), WithCacheInvalidation(inv))

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 3, stats.Indexed)
	assert.Equal(t, 0, stats.Failed)
	assert.ElementsMatch(t, []string{"lic-1", "lic-2", "lic-3"}, idx.indexed)

	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, []string{"license:"}, inv.prefixes)
}

func TestReindexer_Run_CountsFailures(t *testing.T) {
	repo := newFakeRepo(
		&domain.License{ID: "lic-1", Compact: "aslp", Jurisdiction: "oh"},
		&domain.License{ID: "lic-2", Compact: "aslp", Jurisdiction: "oh"},
	)
	idx := &flakyIndex{failIDs: map[string]bool{"lic-1": true}}

	r := NewReindexer(repo, idx, "aslp", []string{"oh"}, testutil.NewMockLogger())

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)
}

func TestReindexer_Run_LockDenied(t *testing.T) {
	repo := newFakeRepo()
	locker := &fakeLocker{denyError: errors.New(errors.ErrCodeCacheError, "lock not acquired")}

	r := NewReindexer(repo, &fakeIndex{}, "aslp", []string{"oh"}, testutil.NewMockLogger(),
		WithReindexLock(locker))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, locker.released)
}

func TestReindexer_Run_EmptyStore(t *testing.T) {
	r := NewReindexer(newFakeRepo(), &fakeIndex{}, "aslp", []string{"oh", "ky"}, testutil.NewMockLogger())

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Scanned)
}
