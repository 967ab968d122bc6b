package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/pkg/testing/containers"
	"github.com/hee-tis/trainee-notifications/pkg/testing/helpers"
)

var testDB *mongo.Database

// TestMain connects to the docker-compose MongoDB instance the same way
// pkg/events' RabbitMQ integration tests connect to the broker.
func TestMain(m *testing.M) {
	if testing.Short() {
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	cfg := containers.DefaultMongoDBConfig()
	cfg.Database = "trainee_notifications_test"

	container, err := containers.NewMongoDBContainer(ctx, cfg)
	if err != nil {
		panic("failed to connect to MongoDB: " + err.Error())
	}
	testDB = container.GetDB()

	code := m.Run()

	container.Close(ctx)
	os.Exit(code)
}

func setupTest(t *testing.T) context.Context {
	t.Helper()
	helpers.SkipIfShort(t)
	ctx, cancel := helpers.DefaultTestContext()
	t.Cleanup(cancel)
	return ctx
}

func newHistoryForTest(t *testing.T, ref domain.Reference) *domain.History {
	t.Helper()
	recipient := domain.Recipient{TraineeID: "trainee-1", MessageKind: domain.MessageKindEmail, Contact: "trainee@example.com"}
	tmpl := domain.TemplateBinding{Name: domain.TypeProgrammeCreated.TemplateName(), Version: "v1"}
	h, err := domain.NewHistory(domain.TypeProgrammeCreated, ref, recipient, tmpl, time.Now().UTC())
	helpers.RequireNoError(t, err)
	return h
}

func TestHistoryRepository_CreateAndFindByID(t *testing.T) {
	ctx := setupTest(t)
	repo := NewHistoryRepository(testDB)
	t.Cleanup(func() { testDB.Collection(historyCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-integration-1"}
	h := newHistoryForTest(t, ref)

	helpers.RequireNoError(t, repo.Create(ctx, h))

	found, err := repo.FindByID(ctx, h.ID)
	helpers.RequireNoError(t, err)
	helpers.AssertEqual(t, h.ID, found.ID)
	helpers.AssertEqual(t, domain.StatusScheduled, found.Status)
}

func TestHistoryRepository_FindByID_NotFound(t *testing.T) {
	ctx := setupTest(t)
	repo := NewHistoryRepository(testDB)

	_, err := repo.FindByID(ctx, uuid.New())
	if err != domain.ErrHistoryNotFound {
		t.Fatalf("expected ErrHistoryNotFound, got %v", err)
	}
}

func TestHistoryRepository_Update_OptimisticConcurrency(t *testing.T) {
	ctx := setupTest(t)
	repo := NewHistoryRepository(testDB)
	t.Cleanup(func() { testDB.Collection(historyCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-integration-2"}
	h := newHistoryForTest(t, ref)
	helpers.RequireNoError(t, repo.Create(ctx, h))

	stale, err := repo.FindByID(ctx, h.ID)
	helpers.RequireNoError(t, err)

	helpers.RequireNoError(t, h.MarkDeleted())
	helpers.RequireNoError(t, repo.Update(ctx, h))

	helpers.RequireNoError(t, stale.MarkDeleted())
	err = repo.Update(ctx, stale)
	if err != domain.ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict on a stale write, got %v", err)
	}
}

func TestHistoryRepository_DeleteByReference_SkipsTerminalRows(t *testing.T) {
	ctx := setupTest(t)
	repo := NewHistoryRepository(testDB)
	t.Cleanup(func() { testDB.Collection(historyCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "pm-integration-3"}
	scheduled := newHistoryForTest(t, ref)
	helpers.RequireNoError(t, repo.Create(ctx, scheduled))

	sent := newHistoryForTest(t, ref)
	helpers.RequireNoError(t, sent.MarkSent(time.Now().UTC()))
	helpers.RequireNoError(t, repo.Create(ctx, sent))

	count, err := repo.DeleteByReference(ctx, ref)
	helpers.RequireNoError(t, err)
	helpers.AssertEqual(t, 1, count)

	found, err := repo.FindByID(ctx, sent.ID)
	helpers.RequireNoError(t, err)
	helpers.AssertEqual(t, domain.StatusSent, found.Status)
}

func TestJobRepository_LeaseIsAtMostOnce(t *testing.T) {
	ctx := setupTest(t)
	repo := NewJobRepository(testDB)
	t.Cleanup(func() { testDB.Collection(jobCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: "placement-integration-1"}
	job := domain.NewScheduledJob(ref, domain.TypeProgrammeCreated, uuid.New(), time.Now().UTC().Add(-time.Minute))
	helpers.RequireNoError(t, repo.Upsert(ctx, job))

	winner, err := repo.Lease(ctx, job.JobID, "owner-a", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.RequireNotNil(t, winner)

	loser, err := repo.Lease(ctx, job.JobID, "owner-b", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.AssertNil(t, loser, "a second racing lease attempt must not also win")
}

func TestJobRepository_LeaseExpiredLeaseIsReclaimable(t *testing.T) {
	ctx := setupTest(t)
	repo := NewJobRepository(testDB)
	t.Cleanup(func() { testDB.Collection(jobCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: "placement-integration-2"}
	job := domain.NewScheduledJob(ref, domain.TypeProgrammeCreated, uuid.New(), time.Now().UTC().Add(-time.Minute))
	helpers.RequireNoError(t, repo.Upsert(ctx, job))

	_, err := repo.Lease(ctx, job.JobID, "owner-a", -time.Minute) // already-expired lease
	helpers.RequireNoError(t, err)

	reclaimed, err := repo.Lease(ctx, job.JobID, "owner-b", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.RequireNotNil(t, reclaimed)
	helpers.AssertEqual(t, "owner-b", reclaimed.LeaseOwner)
}

func TestJobRepository_MarkFiredRequiresCurrentLeaseOwner(t *testing.T) {
	ctx := setupTest(t)
	repo := NewJobRepository(testDB)
	t.Cleanup(func() { testDB.Collection(jobCollection).Drop(ctx) })

	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: "placement-integration-3"}
	job := domain.NewScheduledJob(ref, domain.TypeProgrammeCreated, uuid.New(), time.Now().UTC().Add(-time.Minute))
	helpers.RequireNoError(t, repo.Upsert(ctx, job))
	_, err := repo.Lease(ctx, job.JobID, "owner-a", time.Minute)
	helpers.RequireNoError(t, err)

	err = repo.MarkFired(ctx, job.JobID, "owner-b")
	if err != domain.ErrJobInFlight {
		t.Fatalf("expected ErrJobInFlight marking fired under the wrong owner, got %v", err)
	}

	helpers.RequireNoError(t, repo.MarkFired(ctx, job.JobID, "owner-a"))
}

func TestProcessLockRepository_AcquireExcludesOtherOwners(t *testing.T) {
	ctx := setupTest(t)
	repo := NewProcessLockRepository(testDB)
	t.Cleanup(func() { testDB.Collection(processLockCollection).Drop(ctx) })

	ok, err := repo.Acquire(ctx, "trigger-poller", "owner-a", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.AssertTrue(t, ok)

	blocked, err := repo.Acquire(ctx, "trigger-poller", "owner-b", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.AssertFalse(t, blocked, "a second owner must not acquire a lock already held")

	helpers.RequireNoError(t, repo.Release(ctx, "trigger-poller", "owner-a"))

	ok, err = repo.Acquire(ctx, "trigger-poller", "owner-b", time.Minute)
	helpers.RequireNoError(t, err)
	helpers.AssertTrue(t, ok, "the lock must be acquirable once released")
}

