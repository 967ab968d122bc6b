package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/dispatch"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/resolve"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/resilience"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
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

type fakeRenderer struct{}

func (fakeRenderer) TemplatePath(kind domain.MessageKind, name, version string) string {
	return string(kind) + "/" + name + "/" + version
}
func (fakeRenderer) Render(ctx context.Context, path string, vars map[string]interface{}) (string, error) {
	return "<rendered>", nil
}

type fakeTransport struct{ err error }

func (f fakeTransport) Send(ctx context.Context, personID string, address *string, typ domain.NotificationType, version string, vars map[string]interface{}, ref *domain.Reference, justLog bool) (*ports.TransportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ports.TransportResult{Delivered: true}, nil
}

type fakeBroadcast struct{}

func (fakeBroadcast) PublishChanged(ctx context.Context, h *domain.History) error { return nil }
func (fakeBroadcast) PublishDeleted(ctx context.Context, historyID string) error  { return nil }

// fakeHistoryRepo only implements the lookup the scheduler needs; every
// other method fails loudly if the fire path ever reaches it unexpectedly.
type fakeHistoryRepo struct {
	byID map[uuid.UUID]*domain.History
}

func (f *fakeHistoryRepo) Create(ctx context.Context, h *domain.History) error { return nil }
func (f *fakeHistoryRepo) Update(ctx context.Context, h *domain.History) error { return nil }
func (f *fakeHistoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.History, error) {
	h, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	return h, nil
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

type fakeJobRepo struct {
	leaseResult  *domain.ScheduledJob
	leaseErr     error
	leasedJobID  string
	leasedOwner  string
	markedFired  []string
	markFiredErr error
}

func (f *fakeJobRepo) Upsert(ctx context.Context, job *domain.ScheduledJob) error { return nil }
func (f *fakeJobRepo) FindByID(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	return nil, nil
}
func (f *fakeJobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledJob, error) {
	return nil, nil
}
func (f *fakeJobRepo) Lease(ctx context.Context, jobID, owner string, ttl time.Duration) (*domain.ScheduledJob, error) {
	f.leasedJobID = jobID
	f.leasedOwner = owner
	return f.leaseResult, f.leaseErr
}
func (f *fakeJobRepo) MarkFired(ctx context.Context, jobID, owner string) error {
	f.markedFired = append(f.markedFired, jobID)
	return f.markFiredErr
}
func (f *fakeJobRepo) Cancel(ctx context.Context, jobID string) error { return nil }
func (f *fakeJobRepo) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	return 0, nil
}

type fakeLockRepo struct {
	acquired bool
	acquireErr error
	released   bool
}

func (f *fakeLockRepo) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return f.acquired, f.acquireErr
}
func (f *fakeLockRepo) Release(ctx context.Context, name, owner string) error {
	f.released = true
	return nil
}

func newTestWorker(transport ports.TransportSPI) *dispatch.Worker {
	return &dispatch.Worker{
		Resolver: resolve.NewResolver(
			fakeIdentityStore{rec: &ports.IdentityRecord{Email: "trainee@example.com", Registered: true}},
			fakeProfileStore{rec: &ports.ProfileRecord{}},
		),
		Renderer:         fakeRenderer{},
		Transport:        transport,
		Broadcast:        fakeBroadcast{},
		Clock:            fakeClock{t: time.Now().UTC()},
		TemplateVersions: map[string]dispatch.TemplateVersion{domain.TypeProgrammeCreated.TemplateName(): {Email: "v1"}},
		Whitelist:        map[string]struct{}{"trainee-1": {}},
	}
}

// fastRetryConfig keeps retry-path tests from sleeping through the real
// exponential backoff DefaultRetryConfig uses in production.
func fastRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, Jitter: 0}
}

func newTestScheduler(t *testing.T, jobs *fakeJobRepo, histories *fakeHistoryRepo, locks *fakeLockRepo, worker *dispatch.Worker) *Scheduler {
	t.Helper()
	worker.Histories = histories
	cfg := DefaultConfig("test-owner")
	cfg.PollInterval = time.Hour // never actually ticks in these tests
	cfg.Retry = fastRetryConfig()
	s, err := New(jobs, histories, locks, worker, logger.New(logger.Config{Level: "error"}), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func newLeasedJob(historyID uuid.UUID) *domain.ScheduledJob {
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-1"}
	job := domain.NewScheduledJob(ref, domain.TypeProgrammeCreated, historyID, time.Now().UTC())
	job.Status = domain.JobLeased
	return job
}

func newScheduledHistory(t *testing.T) *domain.History {
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

func TestFire_DispatchesAndMarksFired(t *testing.T) {
	h := newScheduledHistory(t)
	job := newLeasedJob(h.ID)

	jobs := &fakeJobRepo{leaseResult: job}
	histories := &fakeHistoryRepo{byID: map[uuid.UUID]*domain.History{h.ID: h}}
	s := newTestScheduler(t, jobs, histories, &fakeLockRepo{}, newTestWorker(fakeTransport{}))

	if err := s.fire(context.Background(), job.JobID); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if h.Status != domain.StatusSent {
		t.Errorf("expected history SENT, got %s", h.Status)
	}
	if len(jobs.markedFired) != 1 || jobs.markedFired[0] != job.JobID {
		t.Errorf("expected MarkFired called once with %s, got %v", job.JobID, jobs.markedFired)
	}
}

func TestFire_LeaseLostSkipsDispatch(t *testing.T) {
	jobs := &fakeJobRepo{leaseResult: nil}
	histories := &fakeHistoryRepo{byID: map[uuid.UUID]*domain.History{}}
	s := newTestScheduler(t, jobs, histories, &fakeLockRepo{}, newTestWorker(fakeTransport{}))

	if err := s.fire(context.Background(), "some-job-id"); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if len(jobs.markedFired) != 0 {
		t.Errorf("expected no MarkFired call when the lease was lost, got %v", jobs.markedFired)
	}
}

func TestFire_HistoryLookupFailureSkipsLeasingBookkeeping(t *testing.T) {
	h := newScheduledHistory(t)
	job := newLeasedJob(h.ID)

	jobs := &fakeJobRepo{leaseResult: job}
	histories := &fakeHistoryRepo{byID: map[uuid.UUID]*domain.History{}} // FindByID misses
	s := newTestScheduler(t, jobs, histories, &fakeLockRepo{}, newTestWorker(fakeTransport{}))

	err := s.fire(context.Background(), job.JobID)
	if err == nil {
		t.Fatal("expected an error when the history row cannot be found")
	}
	if len(jobs.markedFired) != 0 {
		t.Errorf("a failed history lookup should short-circuit before MarkFired, got %v", jobs.markedFired)
	}
}

func TestFire_MarksFiredEvenWhenDispatchFails(t *testing.T) {
	h := newScheduledHistory(t)
	job := newLeasedJob(h.ID)

	jobs := &fakeJobRepo{leaseResult: job}
	histories := &fakeHistoryRepo{byID: map[uuid.UUID]*domain.History{h.ID: h}}
	s := newTestScheduler(t, jobs, histories, &fakeLockRepo{}, newTestWorker(fakeTransport{err: errors.New("transport down")}))

	err := s.fire(context.Background(), job.JobID)
	if err == nil {
		t.Fatal("expected the dispatch error to propagate")
	}
	if len(jobs.markedFired) != 1 || jobs.markedFired[0] != job.JobID {
		t.Errorf("a permanently-failing dispatch is recorded on the history row, not by re-firing: expected MarkFired called once, got %v", jobs.markedFired)
	}
}

func TestDrainDue_SkipsWhenLockNotHeld(t *testing.T) {
	jobs := &fakeJobRepo{}
	histories := &fakeHistoryRepo{}
	locks := &fakeLockRepo{acquired: false}
	s := newTestScheduler(t, jobs, histories, locks, newTestWorker(fakeTransport{}))

	if err := s.drainDue(context.Background()); err != nil {
		t.Fatalf("drainDue: %v", err)
	}
	if locks.released {
		t.Error("should never attempt to release a lock it did not acquire")
	}
}

func TestDrainDue_PropagatesLockError(t *testing.T) {
	jobs := &fakeJobRepo{}
	histories := &fakeHistoryRepo{}
	locks := &fakeLockRepo{acquireErr: errors.New("mongo unavailable")}
	s := newTestScheduler(t, jobs, histories, locks, newTestWorker(fakeTransport{}))

	if err := s.drainDue(context.Background()); err == nil {
		t.Fatal("expected the lock acquisition error to propagate")
	}
}
