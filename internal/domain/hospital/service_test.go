package hospital

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/pkg/pagination"
)

type mockRepo struct {
	items  map[int64]*Hospital
	nextID int64
	err    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int64]*Hospital)}
}

func (m *mockRepo) Create(_ context.Context, h *Hospital) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	h.ID = m.nextID
	h.CreatedAt = time.Now()
	h.UpdatedAt = h.CreatedAt
	m.items[h.ID] = h
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Hospital, error) {
	h, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (m *mockRepo) List(_ context.Context, p pagination.Params) ([]*Hospital, int, error) {
	var all []*Hospital
	for _, h := range m.items {
		all = append(all, h)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *mockRepo) Exists(_ context.Context, id int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.items[id]
	return ok, nil
}

func TestService_Create(t *testing.T) {
	svc := NewService(newMockRepo())

	h := &Hospital{Name: "  General  "}
	if err := svc.Create(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID == 0 || h.Name != "General" {
		t.Errorf("unexpected hospital: %+v", h)
	}
}

func TestService_Create_NameRequired(t *testing.T) {
	svc := NewService(newMockRepo())
	err := svc.Create(context.Background(), &Hospital{Name: " "})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Create_RepoError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection reset")
	err := NewService(repo).Create(context.Background(), &Hospital{Name: "General"})
	if apperror.KindOf(err) != apperror.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestService_Get(t *testing.T) {
	svc := NewService(newMockRepo())
	h := &Hospital{Name: "North"}
	_ = svc.Create(context.Background(), h)

	got, err := svc.Get(context.Background(), h.ID)
	if err != nil || got.Name != "North" {
		t.Fatalf("unexpected result: %+v, %v", got, err)
	}

	_, err = svc.Get(context.Background(), 999)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_ListAndExists(t *testing.T) {
	svc := NewService(newMockRepo())
	for _, name := range []string{"C", "A", "B"} {
		_ = svc.Create(context.Background(), &Hospital{Name: name})
	}

	items, total, err := svc.List(context.Background(), pagination.New(1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Name != "A" {
		t.Errorf("unexpected page: total=%d items=%v", total, items)
	}

	ok, err := svc.Exists(context.Background(), items[0].ID)
	if err != nil || !ok {
		t.Errorf("expected hospital to exist, got %v %v", ok, err)
	}
	ok, _ = svc.Exists(context.Background(), 42)
	if ok {
		t.Error("expected unknown hospital not to exist")
	}
}
