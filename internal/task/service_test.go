package task

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskager/taskager/internal/logging"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[uuid.UUID]*Task)}
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.UserID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, taskID uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) Update(_ context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return nil, ErrNotFound
	}
	cp := *t
	cp.UpdatedAt = time.Now()
	s.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) Delete(_ context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func newTestTaskService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, logging.NewLogger(true)), store
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Write report",
		Description: "Quarterly numbers",
		DueDate:     "2026-01-15",
		DueTime:     "09:00",
		Priority:    PriorityHigh,
	}
}

func TestCreate_DefaultsPriorityToMedium(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	in := validInput()
	in.Priority = ""

	created, err := svc.Create(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.False(t, created.Completed)
	assert.Nil(t, created.CompletedAt)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	ctx := context.Background()
	owner := uuid.New()

	longTitle := make([]byte, maxTitleLen+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty title", func(in *CreateInput) { in.Title = "  " }},
		{"title too long", func(in *CreateInput) { in.Title = string(longTitle) }},
		{"empty description", func(in *CreateInput) { in.Description = "" }},
		{"empty due date", func(in *CreateInput) { in.DueDate = "" }},
		{"bad due date", func(in *CreateInput) { in.DueDate = "15/01/2026" }},
		{"empty due time", func(in *CreateInput) { in.DueTime = "" }},
		{"bad due time", func(in *CreateInput) { in.DueTime = "9am" }},
		{"bad priority", func(in *CreateInput) { in.Priority = "Urgent" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Create(ctx, owner, in)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestList_OnlyOwnersTasks(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, alice, validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, validInput())
	require.NoError(t, err)

	tasks, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, alice, tasks[0].UserID)
}

func TestOwnership_CrossUserAccessForbidden(t *testing.T) {
	t.Parallel()

	svc, store := newTestTaskService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	created, err := svc.Create(ctx, bob, validInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, alice, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	newTitle := "Hijacked"
	_, err = svc.Update(ctx, alice, created.ID, UpdateInput{Title: &newTitle})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ToggleCompletion(ctx, alice, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, alice, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Bob's task is untouched by any of the rejected calls.
	unchanged, err := svc.Get(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", unchanged.Title)
	assert.False(t, unchanged.Completed)
	_, exists := store.tasks[created.ID]
	assert.True(t, exists)
}

func TestGet_UnknownTask(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_PartialFields(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	newTitle := "Write final report"
	updated, err := svc.Update(ctx, owner, created.ID, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Write final report", updated.Title)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.DueDate, updated.DueDate)
	assert.Equal(t, created.Priority, updated.Priority)
}

func TestUpdate_CompletedFlagStampsCompletedAt(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	done := true
	updated, err := svc.Update(ctx, owner, created.ID, UpdateInput{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "2026-03-14", *updated.CompletedAt)

	open := false
	updated, err = svc.Update(ctx, owner, created.ID, UpdateInput{Completed: &open})
	require.NoError(t, err)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)
}

func TestToggleCompletion_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	completed, err := svc.ToggleCompletion(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "2026-03-14", *completed.CompletedAt)

	// Toggling again restores the original state and clears the stamp.
	reopened, err := svc.ToggleCompletion(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)
}

func TestDelete_RemovesTask(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTaskService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))

	_, err = svc.Get(ctx, owner, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
