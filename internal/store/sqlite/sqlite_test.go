package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapscan/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "gapscan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Empty(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageRaw, c.Stage)
	assert.Zero(t, c.Len())
}

func TestStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := domain.Corpus{Stage: domain.StageClustered, Records: []domain.Record{
		{ID: "b", Title: "Second", Abstract: "y", CleanedAbstract: "y", Cluster: -1},
		{ID: "a", Title: "First", Abstract: "x", CleanedAbstract: "x", Cluster: 0, Metadata: map[string]string{"year": "2020"}},
	}}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.Corpus{Stage: domain.StageClustered, Records: []domain.Record{
		{ID: "1", Title: "t", Abstract: "a", CleanedAbstract: "a", Cluster: 3},
		{ID: "2", Title: "t", Abstract: "a", CleanedAbstract: "a", Cluster: 3},
	}}))
	require.NoError(t, s.Save(ctx, domain.NewCorpus([]domain.Record{{ID: "1", Title: "t", Abstract: "new"}})))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRaw, out.Stage)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "new", out.Records[0].Abstract)
	assert.Equal(t, 0, out.Records[0].Cluster)
	assert.Empty(t, out.Records[0].CleanedAbstract)
}

func TestStore_DuplicateIDRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.NewCorpus([]domain.Record{{ID: "keep", Title: "t", Abstract: "a"}})))

	err := s.Save(ctx, domain.NewCorpus([]domain.Record{{ID: "x", Title: "t", Abstract: "a"}, {ID: "x", Title: "t", Abstract: "b"}}))
	require.Error(t, err)

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "keep", out.Records[0].ID)
}
