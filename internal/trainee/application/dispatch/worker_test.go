package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/resolve"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeIdentityStore struct{ rec *ports.IdentityRecord }

func (f fakeIdentityStore) GetIdentity(ctx context.Context, traineeID string) (*ports.IdentityRecord, error) {
	return f.rec, nil
}

type fakeProfileStore struct{ rec *ports.ProfileRecord }

func (f fakeProfileStore) GetProfile(ctx context.Context, traineeID string) (*ports.ProfileRecord, error) {
	return f.rec, nil
}

type fakeRenderer struct{ renderErr error }

func (f fakeRenderer) TemplatePath(kind domain.MessageKind, name, version string) string {
	return string(kind) + "/" + name + "/" + version
}
func (f fakeRenderer) Render(ctx context.Context, path string, vars map[string]interface{}) (string, error) {
	return "<rendered>", f.renderErr
}

type fakeTransport struct {
	result  *ports.TransportResult
	err     error
	lastJustLog bool
}

func (f *fakeTransport) Send(ctx context.Context, personID string, address *string, typ domain.NotificationType, version string, vars map[string]interface{}, ref *domain.Reference, justLog bool) (*ports.TransportResult, error) {
	f.lastJustLog = justLog
	return f.result, f.err
}

type fakeHistoryRepo struct{ updated *domain.History }

func (f *fakeHistoryRepo) Create(ctx context.Context, h *domain.History) error { return nil }
func (f *fakeHistoryRepo) Update(ctx context.Context, h *domain.History) error {
	f.updated = h
	return nil
}
func (f *fakeHistoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.History, error) {
	return nil, nil
}
func (f *fakeHistoryRepo) FindByReference(ctx context.Context, ref domain.Reference) ([]*domain.History, error) {
	return nil, nil
}
func (f *fakeHistoryRepo) FindByReferenceAndType(ctx context.Context, ref domain.Reference, typ domain.NotificationType) (*domain.History, error) {
	return nil, domain.ErrHistoryNotFound
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

func newHistory(t *testing.T) *domain.History {
	t.Helper()
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-1"}
	recipient := domain.Recipient{TraineeID: "trainee-1", MessageKind: domain.MessageKindEmail, Contact: "old@example.com"}
	tmpl := domain.TemplateBinding{Name: domain.TypeProgrammeCreated.TemplateName(), Version: "v1"}
	h, err := domain.NewHistory(domain.TypeProgrammeCreated, ref, recipient, tmpl, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	return h
}

func TestDispatch_SuccessfulSend(t *testing.T) {
	h := newHistory(t)
	transport := &fakeTransport{result: &ports.TransportResult{Delivered: true}}

	w := &Worker{
		Histories:        &fakeHistoryRepo{},
		Resolver:         resolve.NewResolver(fakeIdentityStore{rec: &ports.IdentityRecord{Email: "new@example.com", Registered: true}}, fakeProfileStore{rec: &ports.ProfileRecord{}}),
		Renderer:         fakeRenderer{},
		Transport:        transport,
		Broadcast:        &fakeBroadcast{},
		Clock:            fakeClock{t: time.Now().UTC()},
		TemplateVersions: map[string]TemplateVersion{domain.TypeProgrammeCreated.TemplateName(): {Email: "v1"}},
		Whitelist:        map[string]struct{}{"trainee-1": {}},
	}

	payload := JobPayload{PersonID: "trainee-1", TisID: "tis-1", Reference: h.Reference, Variables: map[string]interface{}{}}
	if err := w.Dispatch(context.Background(), h, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.Status != domain.StatusSent {
		t.Errorf("expected SENT, got %s", h.Status)
	}
	if h.Recipient.Contact != "new@example.com" {
		t.Errorf("expected recipient refreshed to new@example.com, got %s", h.Recipient.Contact)
	}
}

func TestDispatch_MissingTemplateVersionFails(t *testing.T) {
	h := newHistory(t)
	w := &Worker{
		Histories: &fakeHistoryRepo{},
		Resolver:  resolve.NewResolver(fakeIdentityStore{rec: &ports.IdentityRecord{Email: "x@example.com"}}, fakeProfileStore{rec: &ports.ProfileRecord{}}),
		Renderer:  fakeRenderer{},
		Transport: &fakeTransport{result: &ports.TransportResult{Delivered: true}},
		Broadcast: &fakeBroadcast{},
		Clock:     fakeClock{t: time.Now().UTC()},
		TemplateVersions: map[string]TemplateVersion{},
		Whitelist: map[string]struct{}{"trainee-1": {}},
	}
	payload := JobPayload{PersonID: "trainee-1", TisID: "tis-1", Reference: h.Reference}
	err := w.Dispatch(context.Background(), h, payload)
	if err == nil {
		t.Fatal("expected an error for missing template version")
	}
	derr, ok := err.(*domain.DispatchError)
	if !ok || derr.Kind != domain.KindConfigError {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if h.Status != domain.StatusFailed {
		t.Errorf("expected FAILED, got %s", h.Status)
	}
}

func TestDispatch_DirectAddressSkipsIdentityResolution(t *testing.T) {
	ref := domain.Reference{Kind: domain.ReferenceLTFT, ID: "form-1"}
	recipient := domain.Recipient{TraineeID: "trainee-1", MessageKind: domain.MessageKindEmail, Contact: "tpd@x"}
	tmpl := domain.TemplateBinding{Name: domain.TypeLtftSubmittedTPD.TemplateName(), Version: "v1"}
	h, err := domain.NewHistory(domain.TypeLtftSubmittedTPD, ref, recipient, tmpl, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}

	transport := &fakeTransport{result: &ports.TransportResult{Delivered: true}}
	w := &Worker{
		Histories: &fakeHistoryRepo{},
		// A Resolver whose stores would return a different address; if
		// refreshRecipient called it for a direct-address type, the sent
		// address would wrongly change to resolved@example.com.
		Resolver:         resolve.NewResolver(fakeIdentityStore{rec: &ports.IdentityRecord{Email: "resolved@example.com", Registered: true}}, fakeProfileStore{rec: &ports.ProfileRecord{}}),
		Renderer:         fakeRenderer{},
		Transport:        transport,
		Broadcast:        &fakeBroadcast{},
		Clock:            fakeClock{t: time.Now().UTC()},
		TemplateVersions: map[string]TemplateVersion{domain.TypeLtftSubmittedTPD.TemplateName(): {Email: "v1"}},
		Whitelist:        map[string]struct{}{"trainee-1": {}},
	}

	payload := JobPayload{PersonID: "trainee-1", TisID: "tis-1", Reference: h.Reference, Variables: map[string]interface{}{}}
	if err := w.Dispatch(context.Background(), h, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.Recipient.Contact != "tpd@x" {
		t.Errorf("expected recipient.contact to stay tpd@x, got %s", h.Recipient.Contact)
	}
}

func TestDispatch_JitRecheckFailsApplicability(t *testing.T) {
	h := newHistory(t)
	transport := &fakeTransport{result: &ports.TransportResult{Delivered: true}}
	w := &Worker{
		Histories:        &fakeHistoryRepo{},
		Resolver:         resolve.NewResolver(fakeIdentityStore{rec: &ports.IdentityRecord{Email: "x@example.com"}}, fakeProfileStore{rec: &ports.ProfileRecord{}}),
		Renderer:         fakeRenderer{},
		Transport:        transport,
		Broadcast:        &fakeBroadcast{},
		Clock:            fakeClock{t: time.Now().UTC()},
		TemplateVersions: map[string]TemplateVersion{domain.TypeProgrammeCreated.TemplateName(): {Email: "v1"}},
	}
	payload := JobPayload{
		PersonID: "trainee-1", TisID: "tis-1", Reference: h.Reference,
		Reapply: func(ctx context.Context) (bool, error) { return false, nil },
	}
	if err := w.Dispatch(context.Background(), h, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !transport.lastJustLog {
		t.Error("expected justLog=true when criteria no longer met")
	}
	if h.Status != domain.StatusSent {
		t.Errorf("expected SENT with just-logged detail, got %s", h.Status)
	}
	if h.FailureReason != "criteria not met" {
		t.Errorf("expected statusDetail 'criteria not met', got %q", h.FailureReason)
	}
}
