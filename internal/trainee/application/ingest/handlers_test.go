package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/inapp"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain/rules"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type memHistoryRepo struct {
	byID    map[uuid.UUID]*domain.History
	byRef   map[string][]*domain.History
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{byID: map[uuid.UUID]*domain.History{}, byRef: map[string][]*domain.History{}}
}

func refKey(ref domain.Reference) string { return string(ref.Kind) + "|" + ref.ID }
func refTypeKey(ref domain.Reference, typ domain.NotificationType) string {
	return refKey(ref) + "|" + string(typ)
}

func (r *memHistoryRepo) Create(ctx context.Context, h *domain.History) error {
	r.byID[h.GetID()] = h
	r.byRef[refKey(h.Reference)] = append(r.byRef[refKey(h.Reference)], h)
	return nil
}
func (r *memHistoryRepo) Update(ctx context.Context, h *domain.History) error {
	r.byID[h.GetID()] = h
	return nil
}
func (r *memHistoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.History, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	return h, nil
}
func (r *memHistoryRepo) FindByReference(ctx context.Context, ref domain.Reference) ([]*domain.History, error) {
	return r.byRef[refKey(ref)], nil
}
func (r *memHistoryRepo) FindByReferenceAndType(ctx context.Context, ref domain.Reference, typ domain.NotificationType) (*domain.History, error) {
	for _, h := range r.byRef[refKey(ref)] {
		if h.Type == typ {
			return h, nil
		}
	}
	return nil, domain.ErrHistoryNotFound
}
func (r *memHistoryRepo) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.History, error) {
	return nil, nil
}
func (r *memHistoryRepo) FindUnread(ctx context.Context, traineeID string) ([]*domain.History, error) {
	return nil, nil
}
func (r *memHistoryRepo) CountUnread(ctx context.Context, traineeID string) (int, error) {
	return 0, nil
}
func (r *memHistoryRepo) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	return 0, nil
}

type memJobRepo struct {
	byID map[string]*domain.ScheduledJob
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{byID: map[string]*domain.ScheduledJob{}} }

func (r *memJobRepo) Upsert(ctx context.Context, job *domain.ScheduledJob) error {
	r.byID[job.JobID] = job
	return nil
}
func (r *memJobRepo) FindByID(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	j, ok := r.byID[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return j, nil
}
func (r *memJobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledJob, error) {
	return nil, nil
}
func (r *memJobRepo) Lease(ctx context.Context, jobID, owner string, ttl time.Duration) (*domain.ScheduledJob, error) {
	return nil, nil
}
func (r *memJobRepo) MarkFired(ctx context.Context, jobID, owner string) error { return nil }
func (r *memJobRepo) Cancel(ctx context.Context, jobID string) error {
	j, ok := r.byID[jobID]
	if !ok {
		return nil
	}
	return j.Cancel()
}
func (r *memJobRepo) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	n := 0
	for id, j := range r.byID {
		if j.Status == domain.JobPending {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeBroadcast struct{}

func (fakeBroadcast) PublishChanged(ctx context.Context, h *domain.History) error { return nil }
func (fakeBroadcast) PublishDeleted(ctx context.Context, historyID string) error  { return nil }

type fakeContacts struct {
	byType map[string][]domain.LocalOfficeContact
}

func (f fakeContacts) ListContacts(ctx context.Context, localOffice string) ([]domain.LocalOfficeContact, error) {
	return nil, nil
}
func (f fakeContacts) ListTraineeContacts(ctx context.Context, traineeID, contactType string) ([]domain.LocalOfficeContact, error) {
	return f.byType[contactType], nil
}

var _ ports.ContactDirectory = fakeContacts{}

func newHandlers(histories domain.HistoryRepository, jobs domain.JobRepository, contacts ports.ContactDirectory, now time.Time) *Handlers {
	loc, _ := time.LoadLocation("Europe/London")
	return &Handlers{
		Histories: histories,
		Jobs:      jobs,
		InApp:     inapp.NewNotifier(histories, fakeBroadcast{}, fakeClock{t: now}),
		Contacts:  contacts,
		Clock:     fakeClock{t: now},
		Config: rules.Config{
			Timezone:               loc,
			NotificationDelay:      60 * time.Minute,
			DeferralMoreThanDays:   7,
			PogCutoffWeeks:         12,
			Pog12MonthCutoffMonths: 6,
			WhitelistedPersonIDs:   map[string]struct{}{},
			DummyRoles:             map[string]struct{}{},
			IncludedCurriculumSubtypes: map[string]struct{}{"medical_curriculum": {}},
			ExcludedSpecialties:        map[string]struct{}{"FOUNDATION": {}},
		},
	}
}

func londonDate(y int, m time.Month, d int) time.Time {
	loc, _ := time.LoadLocation("Europe/London")
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestProgrammeMembershipUpdated_SchedulesAndCreatesInApp(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	now := londonDate(2030, 1, 15).AddDate(0, 0, -100)
	h := newHandlers(histories, jobs, fakeContacts{}, now)

	start := londonDate(2030, 1, 15)
	pm := rules.ProgrammeMembership{
		TisID: "tis-1", PersonID: "person-1", ProgrammeName: "Cardiology",
		StartDate: &start,
		Curricula: []rules.Curriculum{{SubType: "Medical_Curriculum", Specialty: "Cardiology"}},
	}

	if err := h.ProgrammeMembershipUpdated(context.Background(), pm); err != nil {
		t.Fatalf("ProgrammeMembershipUpdated: %v", err)
	}

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "tis-1"}
	rows, _ := histories.FindByReference(context.Background(), ref)
	if len(rows) == 0 {
		t.Fatal("expected history rows to be created")
	}

	foundInApp := false
	for _, row := range rows {
		if row.Type == domain.TypeLTFT && row.Status == domain.StatusUnread {
			foundInApp = true
		}
	}
	if !foundInApp {
		t.Error("expected an UNREAD LTFT in-app row")
	}

	if len(jobs.byID) == 0 {
		t.Error("expected scheduled jobs for email reminders")
	}
}

func TestProgrammeMembershipUpdated_Idempotent(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	now := londonDate(2030, 1, 15).AddDate(0, 0, -100)
	h := newHandlers(histories, jobs, fakeContacts{}, now)

	start := londonDate(2030, 1, 15)
	pm := rules.ProgrammeMembership{
		TisID: "tis-1", PersonID: "person-1",
		StartDate: &start,
		Curricula: []rules.Curriculum{{SubType: "Medical_Curriculum", Specialty: "Cardiology"}},
	}

	if err := h.ProgrammeMembershipUpdated(context.Background(), pm); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	jobCountAfterFirst := len(jobs.byID)

	if err := h.ProgrammeMembershipUpdated(context.Background(), pm); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(jobs.byID) != jobCountAfterFirst {
		t.Errorf("expected re-ingestion with unchanged dates to create no new jobs, got %d vs %d", len(jobs.byID), jobCountAfterFirst)
	}
}

func TestProgrammeMembershipDeleted_CascadesHistoryAndJobs(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	now := londonDate(2030, 1, 15).AddDate(0, 0, -100)
	h := newHandlers(histories, jobs, fakeContacts{}, now)

	start := londonDate(2030, 1, 15)
	pm := rules.ProgrammeMembership{
		TisID: "tis-1", PersonID: "person-1",
		StartDate: &start,
		Curricula: []rules.Curriculum{{SubType: "Medical_Curriculum", Specialty: "Cardiology"}},
	}
	if err := h.ProgrammeMembershipUpdated(context.Background(), pm); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if err := h.ProgrammeMembershipDeleted(context.Background(), "tis-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "tis-1"}
	rows, _ := histories.FindByReference(context.Background(), ref)
	for _, row := range rows {
		if row.Status != domain.StatusDeleted {
			t.Errorf("expected row %s to be DELETED, got %s", row.Type, row.Status)
		}
	}
	for _, j := range jobs.byID {
		if j.Status == domain.JobPending {
			t.Errorf("expected all pending jobs to be removed, found %+v", j)
		}
	}
}

func TestCojSigned_CancelsPendingCreatedJob(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	now := time.Now().UTC()
	h := newHandlers(histories, jobs, fakeContacts{}, now)

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "tis-1"}
	recipient := domain.Recipient{TraineeID: "person-1", MessageKind: domain.MessageKindEmail, Contact: "trainee@example.com"}
	tmpl := domain.TemplateBinding{Name: domain.TypeProgrammeCreated.TemplateName(), Version: "v1"}
	row, err := domain.NewHistory(domain.TypeProgrammeCreated, ref, recipient, tmpl, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	if err := histories.Create(context.Background(), row); err != nil {
		t.Fatalf("histories.Create: %v", err)
	}

	jobID := domain.NewJobID(ref, domain.TypeProgrammeCreated)
	job := domain.NewScheduledJob(ref, domain.TypeProgrammeCreated, row.GetID(), now.Add(time.Hour))
	jobs.byID[jobID] = job

	if err := h.CojSigned(context.Background(), "tis-1"); err != nil {
		t.Fatalf("CojSigned: %v", err)
	}
	if jobs.byID[jobID].Status != domain.JobCancelled {
		t.Errorf("expected job cancelled, got %s", jobs.byID[jobID].Status)
	}

	found, err := histories.FindByID(context.Background(), row.GetID())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Status != domain.StatusDeleted {
		t.Errorf("expected the scheduled history row to be deleted, got %s", found.Status)
	}
}

func TestCojSigned_NoJobIsNoop(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	h := newHandlers(histories, jobs, fakeContacts{}, time.Now().UTC())

	if err := h.CojSigned(context.Background(), "unknown-tis"); err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
}

func TestGmcUpdated_SchedulesOnePerDistinctEmail(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	contacts := fakeContacts{byType: map[string][]domain.LocalOfficeContact{
		domain.ContactTypeGmcUpdate: {
			{Type: domain.ContactTypeGmcUpdate, Contact: "email@lo1.example"},
			{Type: domain.ContactTypeGmcUpdate, Contact: "https://lo2.example"},
			{Type: domain.ContactTypeGmcUpdate, Contact: "email@lo1.example"},
		},
	}}
	h := newHandlers(histories, jobs, contacts, time.Now().UTC())

	if err := h.GmcUpdated(context.Background(), rules.GmcUpdate{TraineeID: "t-1", GmcNumber: "1234567"}, "North West"); err != nil {
		t.Fatalf("GmcUpdated: %v", err)
	}

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "t-1"}
	rows, _ := histories.FindByReference(context.Background(), ref)
	count := 0
	for _, row := range rows {
		if row.Type == domain.TypeGmcUpdated {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one GMC_UPDATED history row, got %d", count)
	}
}

func TestLtftUpdatedTPD_AddressesTpdEmailDirectly(t *testing.T) {
	histories := newMemHistoryRepo()
	jobs := newMemJobRepo()
	h := newHandlers(histories, jobs, fakeContacts{}, time.Now().UTC())

	evt := rules.LtftUpdate{
		TraineeID: "t-1", FormRef: "form-1", State: "SUBMITTED",
		ManagingDeanery: "North West", TpdEmail: "tpd@x",
	}
	if err := h.LtftUpdatedTPD(context.Background(), evt); err != nil {
		t.Fatalf("LtftUpdatedTPD: %v", err)
	}

	ref := domain.Reference{Kind: domain.ReferenceLTFT, ID: "form-1"}
	rows, _ := histories.FindByReference(context.Background(), ref)
	var found *domain.History
	for _, row := range rows {
		if row.Type == domain.TypeLtftSubmittedTPD {
			found = row
		}
	}
	if found == nil {
		t.Fatal("expected a LTFT_SUBMITTED_TPD history row")
	}
	if found.Recipient.Contact != "tpd@x" {
		t.Errorf("expected recipient.contact to equal tpd@x, got %q", found.Recipient.Contact)
	}
}
