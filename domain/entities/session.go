package entities

import (
	"sync"
	"sync/atomic"
	"time"
)

// SessionStatus represents the externally observable state of the recording
// session. Exactly one status is active at any time.
type SessionStatus string

const (
	StatusIdle           SessionStatus = "idle"
	StatusRecording      SessionStatus = "recording"
	StatusPaused         SessionStatus = "paused"
	StatusUploading      SessionStatus = "uploading"
	StatusBackendOffline SessionStatus = "backend_offline"
	StatusError          SessionStatus = "error"
)

// Snapshot is a read-only view of the session state for the control plane.
type Snapshot struct {
	Status         SessionStatus `json:"status"`
	ErrorReason    string        `json:"error_reason,omitempty"`
	RecordingID    int64         `json:"recording_id,omitempty"`
	Sequence       int64         `json:"sequence"`
	Duration       time.Duration `json:"-"`
	UploadProgress uint32        `json:"upload_progress"`
}

// Session holds the mutable state of one recording session.
//
// The recording flag and the level meters are written from audio-callback
// paths and use atomics; the remaining scalar fields share one small mutex
// that is never held across a blocking call.
type Session struct {
	// Recording gates both the capture callbacks and the mixing loop.
	// Clearing it is the cooperative cancellation signal.
	Recording atomic.Bool

	// InputLevel and OutputLevel are live meters for the microphone and
	// the system loopback stream.
	InputLevel  LevelMeter
	OutputLevel LevelMeter

	mu          sync.Mutex
	status      SessionStatus
	errorReason string
	recordingID int64
	sequence    int64
	startedAt   time.Time     // zero while paused or idle
	accumulated time.Duration // active time before the current interval

	uploadsTotal atomic.Uint32
	uploadsDone  atomic.Uint32
}

// NewSession creates a session in the idle state.
func NewSession() *Session {
	return &Session{status: StatusIdle, sequence: 1}
}

// Status returns the current status and, when status is error, its reason.
func (s *Session) Status() (SessionStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.errorReason
}

// Begin transitions the session into recording for a freshly created
// remote recording. Sequence restarts at 1 and timing accumulators reset.
func (s *Session) Begin(recordingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordingID = recordingID
	s.sequence = 1
	s.startedAt = time.Now()
	s.accumulated = 0
	s.status = StatusRecording
	s.errorReason = ""
	s.uploadsTotal.Store(0)
	s.uploadsDone.Store(0)
	s.Recording.Store(true)
}

// MarkPaused folds the elapsed active interval into the accumulated
// duration. It is a no-op unless the session is currently recording.
func (s *Session) MarkPaused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRecording {
		return
	}
	if !s.startedAt.IsZero() {
		s.accumulated += time.Since(s.startedAt)
		s.startedAt = time.Time{}
	}
	s.status = StatusPaused
}

// MarkResumed restarts the active-duration clock and raises the recording
// flag. It is a no-op unless the session is currently paused.
func (s *Session) MarkResumed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPaused {
		return
	}
	s.startedAt = time.Now()
	s.status = StatusRecording
	s.Recording.Store(true)
}

// MarkStopping closes the active interval and moves the session into the
// uploading state. It returns the total active duration of the session.
// An error status is left untouched so the reason stays visible.
func (s *Session) MarkStopping() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.startedAt.IsZero() {
		s.accumulated += time.Since(s.startedAt)
		s.startedAt = time.Time{}
	}
	if s.status == StatusRecording || s.status == StatusPaused {
		s.status = StatusUploading
	}
	return s.accumulated
}

// Reset clears the session identifiers and returns to idle, unless the
// session ended in an error that has not been acknowledged by a new start.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordingID = 0
	s.sequence = 1
	s.startedAt = time.Time{}
	s.accumulated = 0
	if s.status != StatusError {
		s.status = StatusIdle
	}
}

// SetError records a failure from the capture thread. The recording flag is
// cleared; a new start command is required to leave this state.
func (s *Session) SetError(reason string) {
	s.Recording.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.errorReason = reason
}

// SetBackendOffline layers the offline indicator over an otherwise idle
// session. Active recordings are not interrupted by backend outages.
func (s *Session) SetBackendOffline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusIdle {
		s.status = StatusBackendOffline
	}
}

// SetBackendOnline clears the offline indicator.
func (s *Session) SetBackendOnline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusBackendOffline {
		s.status = StatusIdle
	}
}

// RecordingID returns the remote identifier of the current recording, or
// zero when no recording is in progress.
func (s *Session) RecordingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordingID
}

// Sequence returns the next segment sequence number for the session.
func (s *Session) Sequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// SetSequence publishes the next sequence number so a later resume
// continues numbering where the previous interval stopped. Sequence never
// decreases for the lifetime of a session.
func (s *Session) SetSequence(sequence int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sequence > s.sequence {
		s.sequence = sequence
	}
}

// Duration returns the total active duration, including the live interval
// when the session is recording.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.accumulated
	if !s.startedAt.IsZero() {
		total += time.Since(s.startedAt)
	}
	return total
}

// AddPendingUpload registers a submitted segment upload.
func (s *Session) AddPendingUpload() {
	s.uploadsTotal.Add(1)
}

// CompleteUpload records one confirmed segment upload.
func (s *Session) CompleteUpload() {
	s.uploadsDone.Add(1)
}

// UploadProgress reports confirmed uploads scaled to the 0-20 band of the
// overall recording progress metric. The remaining 80 is owned by the
// backend's processing stages.
func (s *Session) UploadProgress() uint32 {
	total := s.uploadsTotal.Load()
	if total == 0 {
		return 0
	}
	done := s.uploadsDone.Load()
	return 20 * done / total
}

// Snapshot captures the observable state in one consistent read.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.accumulated
	if !s.startedAt.IsZero() {
		total += time.Since(s.startedAt)
	}
	return Snapshot{
		Status:         s.status,
		ErrorReason:    s.errorReason,
		RecordingID:    s.recordingID,
		Sequence:       s.sequence,
		Duration:       total,
		UploadProgress: s.UploadProgress(),
	}
}
