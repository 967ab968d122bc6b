package inapp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeHistoryRepo struct {
	byRefType map[string]*domain.History
	created   []*domain.History
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{byRefType: map[string]*domain.History{}}
}

func key(ref domain.Reference, typ domain.NotificationType) string {
	return string(ref.Kind) + "|" + ref.ID + "|" + string(typ)
}

func (f *fakeHistoryRepo) Create(ctx context.Context, h *domain.History) error {
	f.created = append(f.created, h)
	f.byRefType[key(h.Reference, h.Type)] = h
	return nil
}
func (f *fakeHistoryRepo) Update(ctx context.Context, h *domain.History) error { return nil }
func (f *fakeHistoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.History, error) {
	return nil, domain.ErrHistoryNotFound
}
func (f *fakeHistoryRepo) FindByReference(ctx context.Context, ref domain.Reference) ([]*domain.History, error) {
	return nil, nil
}
func (f *fakeHistoryRepo) FindByReferenceAndType(ctx context.Context, ref domain.Reference, typ domain.NotificationType) (*domain.History, error) {
	h, ok := f.byRefType[key(ref, typ)]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	return h, nil
}
func (f *fakeHistoryRepo) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.History, error) {
	return nil, nil
}
func (f *fakeHistoryRepo) FindUnread(ctx context.Context, traineeID string) ([]*domain.History, error) {
	return nil, nil
}
func (f *fakeHistoryRepo) CountUnread(ctx context.Context, traineeID string) (int, error) {
	return 0, nil
}
func (f *fakeHistoryRepo) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	return 0, nil
}

type fakeBroadcast struct{ published int }

func (f *fakeBroadcast) PublishChanged(ctx context.Context, h *domain.History) error {
	f.published++
	return nil
}
func (f *fakeBroadcast) PublishDeleted(ctx context.Context, historyID string) error { return nil }

func TestCreateInApp_CreatesUnread(t *testing.T) {
	repo := newFakeHistoryRepo()
	bc := &fakeBroadcast{}
	n := &Notifier{Histories: repo, Broadcast: bc, Clock: fakeClock{t: time.Now().UTC()}}

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-1"}
	tmpl := domain.TemplateBinding{Name: "ltft", Version: "v1"}

	h, err := n.CreateInApp(context.Background(), "trainee-1", ref, domain.TypeLTFT, tmpl)
	if err != nil {
		t.Fatalf("CreateInApp: %v", err)
	}
	if h.Status != domain.StatusUnread {
		t.Errorf("expected UNREAD, got %s", h.Status)
	}
	if bc.published != 1 {
		t.Errorf("expected one broadcast, got %d", bc.published)
	}
}

func TestCreateInApp_SkipsWhenActiveExists(t *testing.T) {
	repo := newFakeHistoryRepo()
	n := &Notifier{Histories: repo, Broadcast: &fakeBroadcast{}, Clock: fakeClock{t: time.Now().UTC()}}
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-1"}
	tmpl := domain.TemplateBinding{Name: "ltft", Version: "v1"}

	first, err := n.CreateInApp(context.Background(), "trainee-1", ref, domain.TypeLTFT, tmpl)
	if err != nil {
		t.Fatalf("CreateInApp: %v", err)
	}
	second, err := n.CreateInApp(context.Background(), "trainee-1", ref, domain.TypeLTFT, tmpl)
	if err != nil {
		t.Fatalf("CreateInApp: %v", err)
	}
	if second.GetID() != first.GetID() {
		t.Error("expected the second call to return the existing row, not create a new one")
	}
	if len(repo.created) != 1 {
		t.Errorf("expected exactly one create, got %d", len(repo.created))
	}
}
