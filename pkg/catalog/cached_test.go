package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mocks "github.com/xinggaoya/GameModMaster/pkg/catalog/mocks"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"github.com/xinggaoya/GameModMaster/pkg/store"
	"go.uber.org/mock/gomock"
)

func openStore(t *testing.T, now *time.Time) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "gmm.db")}, store.WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCached_ListingReadThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := openStore(t, &now)
	c := NewCached(upstream, st)

	first := model.Page{Trainers: []model.Trainer{{ID: "1"}}, Total: 1}
	second := model.Page{Trainers: []model.Trainer{{ID: "1"}, {ID: "2"}}, Total: 2}

	gomock.InOrder(
		upstream.EXPECT().FetchListing(gomock.Any(), 1).Return(first, nil),
		upstream.EXPECT().FetchListing(gomock.Any(), 1).Return(second, nil),
	)

	got, err := c.FetchListing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = c.FetchListing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, got, "second read is served from the cache")

	now = now.Add(store.CacheTTL)
	got, err = c.FetchListing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, second, got, "expired entry goes back upstream")
}

func TestCached_SearchKeyedByQueryAndPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := openStore(t, &now)
	c := NewCached(upstream, st)

	upstream.EXPECT().Search(gomock.Any(), "ring", 1).Return(model.Page{Total: 1}, nil).Times(1)
	upstream.EXPECT().Search(gomock.Any(), "ring", 2).Return(model.Page{Total: 2}, nil).Times(1)

	for i := 0; i < 2; i++ {
		p, err := c.Search(context.Background(), " ring ", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Total)
	}
	p, err := c.Search(context.Background(), "ring", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total)

	keys, err := st.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"searchResults_ring_1", "searchResults_ring_2"}, keys)
}

func TestCached_UpstreamErrorIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := openStore(t, &now)
	c := NewCached(upstream, st)

	boom := errors.New(errors.Network, "catalog down")
	gomock.InOrder(
		upstream.EXPECT().FetchListing(gomock.Any(), 1).Return(model.Page{}, boom),
		upstream.EXPECT().FetchListing(gomock.Any(), 1).Return(model.Page{Total: 5}, nil),
	)

	_, err := c.FetchListing(context.Background(), 1)
	assert.Same(t, boom, err)

	p, err := c.FetchListing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Total)
}

func TestCached_StoreFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := openStore(t, &now)
	require.NoError(t, st.Close())

	upstream.EXPECT().FetchListing(gomock.Any(), 1).Return(model.Page{Total: 7}, nil)

	p, err := NewCached(upstream, st).FetchListing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Total)
}

func TestCached_DetailIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	upstream.EXPECT().FetchDetail(gomock.Any(), "42").Return(model.Trainer{ID: "42"}, nil).Times(2)

	c := NewCached(upstream, nil)
	for i := 0; i < 2; i++ {
		got, err := c.FetchDetail(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", got.ID)
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		installed, available string
		want                 bool
	}{
		{"1.0", "1.1", true},
		{"1.10", "1.9", false},
		{"v2.0.0", "2.0", false},
		{"1.0", "1.0.1", true},
		{"build-a", "build-b", true},
		{"build-a", "build-a", false},
		{"1.0", "", false},
		{"", "1.0", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.installed, tt.available), func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.installed, tt.available))
		})
	}
}

func TestOutdated(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)

	installed := []model.InstalledTrainer{
		{Trainer: model.Trainer{ID: "1", Name: "Current", Version: "2.0"}},
		{Trainer: model.Trainer{ID: "2", Name: "Stale", Version: "1.0"}},
		{Trainer: model.Trainer{ID: "3", Name: "Gone", Version: "1.0"}},
	}
	upstream.EXPECT().FetchDetail(gomock.Any(), "1").Return(model.Trainer{ID: "1", Version: "2.0"}, nil)
	upstream.EXPECT().FetchDetail(gomock.Any(), "2").Return(model.Trainer{ID: "2", Version: "1.5"}, nil)
	upstream.EXPECT().FetchDetail(gomock.Any(), "3").Return(model.Trainer{}, errors.New(errors.NotFound, "trainer 3"))

	updates, err := Outdated(context.Background(), upstream, installed)
	require.NoError(t, err)
	assert.Equal(t, []Update{{ID: "2", Name: "Stale", Installed: "1.0", Available: "1.5"}}, updates)
}

func TestOutdated_NetworkErrorStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockCatalog(ctrl)
	upstream.EXPECT().FetchDetail(gomock.Any(), "1").Return(model.Trainer{}, errors.New(errors.Network, "down"))

	_, err := Outdated(context.Background(), upstream, []model.InstalledTrainer{
		{Trainer: model.Trainer{ID: "1"}},
		{Trainer: model.Trainer{ID: "2"}},
	})
	assert.Equal(t, errors.Network, errors.KindOf(err))
}
