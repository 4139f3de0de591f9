// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/storedesk/internal/model"
)

func names(stores []model.Store) []string {
	out := make([]string, len(stores))
	for i, s := range stores {
		out[i] = s.Name
	}
	return out
}

func TestStoreListLoad_SortsNewestFirst(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{
		{Name: "a", CreateTime: "2024-01-01T00:00:00Z"},
		{Name: "b", CreateTime: "2024-06-01T00:00:00Z"},
	}
	list := NewStoreList(backend)

	require.NoError(t, list.Load(context.Background()))
	assert.Equal(t, []string{"b", "a"}, names(list.Stores()))
	assert.Equal(t, PhaseReady, list.Phase())
	assert.NoError(t, list.Err())
}

func TestStoreListLoad_StableWithMissingTimes(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{
		{Name: "x"},
		{Name: "t1", CreateTime: "2024-03-01T00:00:00Z"},
		{Name: "y", CreateTime: "not a time"},
		{Name: "t2", CreateTime: "2024-03-01T00:00:00Z"},
		{Name: "x"},
	}
	list := NewStoreList(backend)

	for i := 0; i < 3; i++ {
		require.NoError(t, list.Load(context.Background()))
		assert.Equal(t, []string{"t1", "t2", "x", "y"}, names(list.Stores()))
	}
}

func TestStoreListLoad_FailureKeepsCollection(t *testing.T) {
	backend := newFakeBackend()
	notes := &recorder{}
	list := NewStoreList(backend, WithStoreNotifier(notes))

	// First load fails: nothing to keep.
	backend.listErr = errBoom
	require.Error(t, list.Load(context.Background()))
	assert.Empty(t, list.Stores())
	assert.Equal(t, PhaseError, list.Phase())

	backend.listErr = nil
	backend.stores = []model.Store{{Name: "a", CreateTime: "2024-01-01T00:00:00Z"}}
	require.NoError(t, list.Load(context.Background()))

	backend.listErr = errBoom
	err := list.Load(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"a"}, names(list.Stores()))
	assert.Equal(t, PhaseError, list.Phase())
	assert.ErrorIs(t, list.Err(), errBoom)
	assert.Equal(t, 2, notes.count(SeverityError))
}

func TestStoreListLoad_PhasesReported(t *testing.T) {
	backend := newFakeBackend()
	list := NewStoreList(backend)
	assert.Equal(t, PhaseIdle, list.Phase())

	var seen []Phase
	list.OnChange(func() { seen = append(seen, list.Phase()) })
	require.NoError(t, list.Load(context.Background()))
	assert.Equal(t, []Phase{PhaseLoading, PhaseReady}, seen)
}

// listingsInOrder answers ListStores calls from a queue; each call blocks on
// its own gate.
type listingsInOrder struct {
	*fakeBackend
	results [][]model.Store
	gates   []chan struct{}
	next    chan int
}

func newListingsInOrder(results ...[]model.Store) *listingsInOrder {
	l := &listingsInOrder{fakeBackend: newFakeBackend(), results: results, next: make(chan int, len(results))}
	for i := range results {
		l.gates = append(l.gates, make(chan struct{}))
		l.next <- i
	}
	return l
}

func (l *listingsInOrder) ListStores(ctx context.Context) ([]model.Store, error) {
	i := <-l.next
	<-l.gates[i]
	return l.results[i], nil
}

func TestStoreListLoad_StaleResponseDropped(t *testing.T) {
	backend := newListingsInOrder(
		[]model.Store{{Name: "old"}},
		[]model.Store{{Name: "old"}, {Name: "new"}},
	)
	list := NewStoreList(backend)

	firstDone := make(chan error, 1)
	go func() { firstDone <- list.Load(context.Background()) }()
	require.Eventually(t, func() bool { return len(backend.next) == 1 }, time.Second, time.Millisecond)

	secondDone := make(chan error, 1)
	go func() { secondDone <- list.Load(context.Background()) }()
	require.Eventually(t, func() bool { return len(backend.next) == 0 }, time.Second, time.Millisecond)

	// The newer listing lands first; the older one must not overwrite it.
	close(backend.gates[1])
	require.NoError(t, <-secondDone)
	close(backend.gates[0])
	require.NoError(t, <-firstDone)

	assert.ElementsMatch(t, []string{"old", "new"}, names(list.Stores()))
	assert.Equal(t, PhaseReady, list.Phase())
}

func TestStoreListCreate_OptimisticSurvivesEarlierLoad(t *testing.T) {
	backend := newListingsInOrder([]model.Store{{Name: "old"}})
	backend.created = &model.Store{Name: "fileSearchStores/made", DisplayName: "Made"}
	list := NewStoreList(backend)

	loadDone := make(chan error, 1)
	go func() { loadDone <- list.Load(context.Background()) }()
	require.Eventually(t, func() bool { return len(backend.next) == 0 }, time.Second, time.Millisecond)

	require.NoError(t, list.Create(context.Background(), "Made"))
	close(backend.gates[0])
	require.NoError(t, <-loadDone)

	assert.Equal(t, []string{"fileSearchStores/made"}, names(list.Stores()))
	assert.Equal(t, PhaseReady, list.Phase())
}

func TestStoreListCreate_EmptyName(t *testing.T) {
	backend := newFakeBackend()
	notes := &recorder{}
	list := NewStoreList(backend, WithStoreNotifier(notes))

	err := list.Create(context.Background(), "  \t ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, 0, backend.count("create_store"))
	assert.Equal(t, 1, notes.count(SeverityWarning))
}

func TestStoreListCreate_SingleFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{})
	list := NewStoreList(backend)

	done := make(chan error, 1)
	go func() { done <- list.Create(context.Background(), "Research") }()
	waitStarted(backend)
	assert.True(t, list.Busy())

	assert.ErrorIs(t, list.Create(context.Background(), "Research"), ErrInFlight)
	assert.ErrorIs(t, list.Create(context.Background(), "Other"), ErrInFlight)

	close(backend.createGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, backend.count("create_store"))
	assert.False(t, list.Busy())
}

func TestStoreListCreate_Optimistic(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{
		{Name: "fileSearchStores/old", CreateTime: "2024-01-01T00:00:00Z"},
		{Name: "fileSearchStores/Research", DisplayName: "stale"},
	}
	list := NewStoreList(backend, WithReconcile(ReconcileOptimistic, 0))
	require.NoError(t, list.Load(context.Background()))

	list.OpenForm()
	require.NoError(t, list.Create(context.Background(), " Research "))

	stores := list.Stores()
	assert.Equal(t, []string{"fileSearchStores/Research", "fileSearchStores/old"}, names(stores))
	assert.Equal(t, "Research", stores[0].DisplayName)
	assert.False(t, list.FormOpen())
	assert.Equal(t, 1, backend.count("list_stores"))
}

func TestStoreListCreate_Deferred(t *testing.T) {
	backend := newFakeBackend()
	var scheduled []time.Duration
	var pending []func()
	list := NewStoreList(backend,
		WithReconcile(ReconcileDeferred, 3*time.Second),
		WithScheduler(func(d time.Duration, fn func()) {
			scheduled = append(scheduled, d)
			pending = append(pending, fn)
		}))
	require.NoError(t, list.Load(context.Background()))

	list.OpenForm()
	require.NoError(t, list.Create(context.Background(), "Research"))
	assert.Empty(t, list.Stores())
	assert.False(t, list.FormOpen())
	assert.Equal(t, []time.Duration{3 * time.Second}, scheduled)

	backend.mu.Lock()
	backend.stores = []model.Store{{Name: "fileSearchStores/Research"}}
	backend.mu.Unlock()
	pending[0]()

	assert.Equal(t, []string{"fileSearchStores/Research"}, names(list.Stores()))
	assert.Equal(t, 2, backend.count("list_stores"))
	assert.Equal(t, ReconcileDeferred, list.Policy())
}

func TestStoreListCreate_FailureLeavesState(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{{Name: "a"}}
	notes := &recorder{}
	list := NewStoreList(backend, WithStoreNotifier(notes))
	require.NoError(t, list.Load(context.Background()))

	list.OpenForm()
	backend.createErr = errBoom
	require.ErrorIs(t, list.Create(context.Background(), "Research"), errBoom)

	assert.Equal(t, []string{"a"}, names(list.Stores()))
	assert.True(t, list.FormOpen())
	assert.False(t, list.Busy())
	assert.Equal(t, []note{{"boom", SeverityError}}, notes.all())
}

func TestStoreListDelete_Declined(t *testing.T) {
	backend := newFakeBackend()
	var prompt string
	list := NewStoreList(backend, WithStoreConfirmer(ConfirmerFunc(func(p string) bool {
		prompt = p
		return false
	})))

	err := list.Delete(context.Background(), "fileSearchStores/abc")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, prompt, "abc")
	assert.Equal(t, 0, backend.count("delete_store"))
}

func TestStoreListDelete_FailureLeavesCollectionIdentical(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{
		{Name: "a", DisplayName: "A", CreateTime: "2024-01-01T00:00:00Z", ActiveDocumentsCount: "3"},
		{Name: "b", DisplayName: "B", CreateTime: "2024-06-01T00:00:00Z"},
	}
	list := NewStoreList(backend)
	require.NoError(t, list.Load(context.Background()))
	before := list.Stores()

	backend.deleteErr = networkError()
	require.Error(t, list.Delete(context.Background(), "a"))

	assert.Equal(t, before, list.Stores())
	assert.Equal(t, PhaseReady, list.Phase())
	assert.Equal(t, 1, backend.count("list_stores"))
}

func TestStoreListDelete_ReloadsOnSuccess(t *testing.T) {
	backend := newFakeBackend()
	backend.stores = []model.Store{{Name: "a"}, {Name: "b"}}
	list := NewStoreList(backend)
	require.NoError(t, list.Load(context.Background()))

	backend.mu.Lock()
	backend.stores = []model.Store{{Name: "b"}}
	backend.mu.Unlock()

	require.NoError(t, list.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"b"}, names(list.Stores()))
	assert.Equal(t, 2, backend.count("list_stores"))
}

func TestStoreListForm(t *testing.T) {
	list := NewStoreList(newFakeBackend())
	assert.False(t, list.FormOpen())
	list.OpenForm()
	assert.True(t, list.FormOpen())
	list.CloseForm()
	assert.False(t, list.FormOpen())
}
