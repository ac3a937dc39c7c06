package entities

import (
	"testing"
	"time"
)

func TestNewSessionIsIdle(t *testing.T) {
	session := NewSession()

	status, reason := session.Status()
	if status != StatusIdle {
		t.Errorf("Expected status %s, got %s", StatusIdle, status)
	}
	if reason != "" {
		t.Errorf("Expected empty error reason, got %q", reason)
	}
	if session.Recording.Load() {
		t.Error("Expected recording flag to be down")
	}
	if session.Sequence() != 1 {
		t.Errorf("Expected sequence 1, got %d", session.Sequence())
	}
}

func TestBeginStartsRecording(t *testing.T) {
	session := NewSession()
	session.Begin(42)

	status, _ := session.Status()
	if status != StatusRecording {
		t.Errorf("Expected status %s, got %s", StatusRecording, status)
	}
	if !session.Recording.Load() {
		t.Error("Expected recording flag to be set")
	}
	if session.RecordingID() != 42 {
		t.Errorf("Expected recording id 42, got %d", session.RecordingID())
	}
	if session.Sequence() != 1 {
		t.Errorf("Expected sequence 1, got %d", session.Sequence())
	}
}

func TestPauseResumeAccumulatesDuration(t *testing.T) {
	session := NewSession()
	session.Begin(1)
	time.Sleep(30 * time.Millisecond)

	session.Recording.Store(false)
	session.MarkPaused()

	status, _ := session.Status()
	if status != StatusPaused {
		t.Errorf("Expected status %s, got %s", StatusPaused, status)
	}
	paused := session.Duration()
	if paused < 20*time.Millisecond {
		t.Errorf("Expected at least 20ms accumulated, got %v", paused)
	}

	// Duration must not grow while paused
	time.Sleep(30 * time.Millisecond)
	if session.Duration() != paused {
		t.Errorf("Expected duration to stay %v while paused, got %v", paused, session.Duration())
	}

	session.MarkResumed()
	if !session.Recording.Load() {
		t.Error("Expected recording flag to be set after resume")
	}
	time.Sleep(30 * time.Millisecond)

	total := session.MarkStopping()
	if total < paused+20*time.Millisecond {
		t.Errorf("Expected total above %v, got %v", paused+20*time.Millisecond, total)
	}
	status, _ = session.Status()
	if status != StatusUploading {
		t.Errorf("Expected status %s, got %s", StatusUploading, status)
	}
}

func TestStateTransitionGuards(t *testing.T) {
	session := NewSession()

	// Pause and resume are no-ops outside their source states
	session.MarkPaused()
	if status, _ := session.Status(); status != StatusIdle {
		t.Errorf("Expected pause from idle to be ignored, got %s", status)
	}
	session.MarkResumed()
	if status, _ := session.Status(); status != StatusIdle {
		t.Errorf("Expected resume from idle to be ignored, got %s", status)
	}
}

func TestSequenceNeverDecreases(t *testing.T) {
	session := NewSession()
	session.Begin(1)
	session.SetSequence(4)
	session.SetSequence(2)

	if session.Sequence() != 4 {
		t.Errorf("Expected sequence 4, got %d", session.Sequence())
	}
}

func TestSetErrorClearsRecordingFlag(t *testing.T) {
	session := NewSession()
	session.Begin(1)
	session.SetError("stream build failed")

	if session.Recording.Load() {
		t.Error("Expected recording flag to be cleared on error")
	}
	status, reason := session.Status()
	if status != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, status)
	}
	if reason != "stream build failed" {
		t.Errorf("Expected error reason to be surfaced, got %q", reason)
	}

	// Reset must not hide the error; only a new start acknowledges it
	session.Reset()
	if status, _ := session.Status(); status != StatusError {
		t.Errorf("Expected error status to survive reset, got %s", status)
	}
	if session.RecordingID() != 0 {
		t.Errorf("Expected recording id reset, got %d", session.RecordingID())
	}
}

func TestBackendOfflineOnlyLayersOverIdle(t *testing.T) {
	session := NewSession()
	session.SetBackendOffline()
	if status, _ := session.Status(); status != StatusBackendOffline {
		t.Errorf("Expected status %s, got %s", StatusBackendOffline, status)
	}
	session.SetBackendOnline()
	if status, _ := session.Status(); status != StatusIdle {
		t.Errorf("Expected status %s, got %s", StatusIdle, status)
	}

	session.Begin(1)
	session.SetBackendOffline()
	if status, _ := session.Status(); status != StatusRecording {
		t.Errorf("Expected recording to be unaffected by backend outage, got %s", status)
	}
}

func TestUploadProgressBand(t *testing.T) {
	session := NewSession()
	if session.UploadProgress() != 0 {
		t.Errorf("Expected 0 progress with no uploads, got %d", session.UploadProgress())
	}

	for i := 0; i < 4; i++ {
		session.AddPendingUpload()
	}
	session.CompleteUpload()
	session.CompleteUpload()
	if session.UploadProgress() != 10 {
		t.Errorf("Expected progress 10 at 2/4 uploads, got %d", session.UploadProgress())
	}

	session.CompleteUpload()
	session.CompleteUpload()
	if session.UploadProgress() != 20 {
		t.Errorf("Expected progress 20 at 4/4 uploads, got %d", session.UploadProgress())
	}
}

func TestSnapshotFields(t *testing.T) {
	session := NewSession()
	session.Begin(7)
	session.SetSequence(3)

	snapshot := session.Snapshot()
	if snapshot.Status != StatusRecording {
		t.Errorf("Expected status %s, got %s", StatusRecording, snapshot.Status)
	}
	if snapshot.RecordingID != 7 {
		t.Errorf("Expected recording id 7, got %d", snapshot.RecordingID)
	}
	if snapshot.Sequence != 3 {
		t.Errorf("Expected sequence 3, got %d", snapshot.Sequence)
	}
}
