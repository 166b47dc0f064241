package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spacetraveling/internal/mocks"
	"github.com/spacetraveling/internal/models"
)

func waitForStatus(t *testing.T, jobs *mocks.MockJobRepository, id string, want models.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if jobs.JobStatus(id) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Job %s did not reach %s, last status %q", id, want, jobs.JobStatus(id))
}

func TestJobService_CreateBuildIdempotency(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	first, err := h.services.Job.CreateBuild(ctx, &models.BuildRequest{IdempotencyKey: "publish-42"})
	if err != nil {
		t.Fatalf("CreateBuild failed: %v", err)
	}
	if first.Status != models.JobStatusPending || first.Trigger != models.TriggerWebhook {
		t.Errorf("Unexpected job: %+v", first)
	}

	second, err := h.services.Job.CreateBuild(ctx, &models.BuildRequest{IdempotencyKey: "publish-42"})
	if err != nil {
		t.Fatalf("CreateBuild failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same job for same key, got %s and %s", first.ID, second.ID)
	}

	third, _ := h.services.Job.CreateBuild(ctx, &models.BuildRequest{})
	if third.ID == first.ID {
		t.Error("Expected a new job without idempotency key")
	}
}

func TestJobService_ProcessesBuild(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := h.services.Job.CreateBuild(ctx, &models.BuildRequest{Trigger: models.TriggerStartup})
	if err != nil {
		t.Fatalf("CreateBuild failed: %v", err)
	}

	go h.services.Job.StartProcessor(ctx)
	waitForStatus(t, h.jobs, job.ID, models.JobStatusCompleted)
	h.services.Job.StopProcessor()

	resp, err := h.services.Job.GetJob(ctx, job.ID)
	if err != nil || resp == nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if resp.PagesBuilt != 4 || resp.PagesFailed != 0 {
		t.Errorf("Unexpected counters: %+v", resp.BuildJob)
	}
	if resp.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
	if resp.ErrorReport != "" {
		t.Errorf("Expected no error report, got %q", resp.ErrorReport)
	}
	if h.client.InvalidateCalls == 0 {
		t.Error("Expected content cache to be invalidated before the build")
	}

	counts, _ := h.services.Job.Counts(ctx)
	if counts[models.JobStatusCompleted] != 1 {
		t.Errorf("Expected 1 completed job, got %v", counts)
	}
}

func TestJobService_FailedBuildRecordsErrors(t *testing.T) {
	h := newTestHarness(t)
	h.client.QueryError = errors.New("content service down")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, _ := h.services.Job.CreateBuild(ctx, &models.BuildRequest{})

	go h.services.Job.StartProcessor(ctx)
	waitForStatus(t, h.jobs, job.ID, models.JobStatusFailed)
	h.services.Job.StopProcessor()

	resp, _ := h.services.Job.GetJob(ctx, job.ID)
	if resp.ErrorCount != 1 || resp.ErrorReport != "/v1/builds/"+job.ID+"/errors" {
		t.Errorf("Unexpected error summary: %+v", resp)
	}

	errs, _ := h.services.Job.GetJobErrors(ctx, job.ID)
	if len(errs) != 1 || errs[0].Route != "*" {
		t.Errorf("Expected one build-wide error, got %+v", errs)
	}
}

func TestJobService_ShutdownRequeuesClaimedJob(t *testing.T) {
	h := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, _ := h.services.Job.CreateBuild(ctx, &models.BuildRequest{})

	claimed := make(chan struct{})
	// shutdown lands between claiming the job and starting its build
	h.jobs.OnMarkProcessing = func(string) {
		cancel()
		close(claimed)
	}

	go h.services.Job.StartProcessor(ctx)
	select {
	case <-claimed:
	case <-time.After(2 * time.Second):
		t.Fatal("Job was never claimed")
	}
	waitForStatus(t, h.jobs, job.ID, models.JobStatusPending)
	h.services.Job.StopProcessor()

	if h.client.QueryCalls != 0 {
		t.Error("Expected no build to run after shutdown")
	}
}

func TestJobService_GetUnknownJob(t *testing.T) {
	h := newTestHarness(t)

	resp, err := h.services.Job.GetJob(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if resp != nil {
		t.Error("Expected nil for unknown job")
	}
}
