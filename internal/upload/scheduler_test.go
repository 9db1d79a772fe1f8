package upload_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bendsql/bendsql-go/internal/upload"
)

func TestScheduler_RunsAllJobs(t *testing.T) {
	s := upload.NewScheduler(4, 1000, nil)

	var completed int32
	jobs := make([]upload.Job, 0, 10)
	for i := 0; i < 10; i++ {
		jobs = append(jobs, upload.Job{
			LocalPath: "file",
			Upload: func(ctx context.Context, path string) error {
				atomic.AddInt32(&completed, 1)
				return nil
			},
		})
	}

	results := s.Run(context.Background(), jobs)
	if len(results) != 10 {
		t.Fatalf("len(results) = %d, want 10", len(results))
	}
	if completed != 10 {
		t.Errorf("completed = %d, want 10", completed)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error: %v", r.Err)
		}
	}
}

func TestScheduler_PropagatesUploadErrors(t *testing.T) {
	s := upload.NewScheduler(2, 1000, nil)
	wantErr := errors.New("upload failed")

	jobs := []upload.Job{
		{LocalPath: "bad", Upload: func(ctx context.Context, path string) error { return wantErr }},
		{LocalPath: "good", Upload: func(ctx context.Context, path string) error { return nil }},
	}

	results := s.Run(context.Background(), jobs)
	var sawErr, sawOK bool
	for _, r := range results {
		if r.Job.LocalPath == "bad" {
			if !errors.Is(r.Err, wantErr) {
				t.Errorf("bad job err = %v, want %v", r.Err, wantErr)
			}
			sawErr = true
		}
		if r.Job.LocalPath == "good" {
			if r.Err != nil {
				t.Errorf("good job err = %v, want nil", r.Err)
			}
			sawOK = true
		}
	}
	if !sawErr || !sawOK {
		t.Fatalf("missing expected results: sawErr=%v sawOK=%v", sawErr, sawOK)
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	s := upload.NewScheduler(1, 0.001, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	jobs := []upload.Job{
		{LocalPath: "a", Upload: func(ctx context.Context, path string) error { return nil }},
		{LocalPath: "b", Upload: func(ctx context.Context, path string) error { return nil }},
	}

	results := s.Run(ctx, jobs)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	var sawCancel bool
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.DeadlineExceeded) {
			sawCancel = true
		}
	}
	if !sawCancel {
		t.Errorf("expected at least one job to observe context cancellation")
	}
}
