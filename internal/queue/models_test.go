package queue_test

import (
	"testing"
	"time"

	"clipforge/internal/queue"
)

func TestProgressNeverDecreases(t *testing.T) {
	job := &queue.Job{}
	job.SetProgress(40)
	job.SetProgress(25)
	if job.Progress != 40 {
		t.Fatalf("progress regressed to %d", job.Progress)
	}
	job.SetProgress(120)
	if job.Progress != 100 {
		t.Fatalf("progress should cap at 100, got %d", job.Progress)
	}
}

func TestOptionsDefaultEnabled(t *testing.T) {
	var opts queue.Options
	if !opts.SubtitlesEnabled() || !opts.SpeedRampEnabled() {
		t.Fatal("unset options should default to enabled")
	}

	disabled := false
	opts.GenerateSubtitles = &disabled
	opts.SpeedRamp = &disabled
	if opts.SubtitlesEnabled() || opts.SpeedRampEnabled() {
		t.Fatal("explicit false should disable the feature")
	}
}

func TestSetFailedThenCompletedClearsError(t *testing.T) {
	job := &queue.Job{}
	job.SetFailed("boom", time.Now())
	if job.Status != queue.StatusFailed || job.ErrorMessage != "boom" {
		t.Fatalf("unexpected failed state: %#v", job)
	}

	job.Status = queue.StatusPending
	job.SetCompleted(time.Now())
	if job.ErrorMessage != "" || job.Progress != 100 {
		t.Fatalf("completion should clear error and finish progress: %#v", job)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Completed "); !ok || status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %q ok=%t", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("unknown status should not parse")
	}
}
