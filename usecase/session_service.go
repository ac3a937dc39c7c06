package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

const (
	// maxSegmentDuration caps one WAV file at five minutes to keep
	// uploads small and losses bounded.
	maxSegmentDuration = 5 * time.Minute

	// chunkTimeout bounds the wait for the next microphone chunk. A
	// timeout only re-checks the recording flag, so it also bounds
	// worst-case shutdown latency.
	chunkTimeout = 500 * time.Millisecond

	commandQueueDepth = 16
)

// MinMeetingLength reports the configured minimum meeting duration.
// Sessions shorter than this are discarded instead of finalized; zero
// disables discarding.
type MinMeetingLength func() time.Duration

// SessionService drives the recording session state machine. Commands are
// processed strictly in arrival order by Run; pause and stop join the
// in-flight segment worker before proceeding, so there is at most one
// active mixing goroutine per session at all times.
type SessionService struct {
	session *entities.Session
	sources repositories.SourceFactory
	backend repositories.RecordingBackend
	uploads *uploadTracker

	commands   chan entities.Command
	workerDone chan struct{} // closed when the segment worker exits
	finishing  sync.WaitGroup

	tempDir    string
	minMeeting MinMeetingLength
	maxSegment time.Duration
	chunkWait  time.Duration // overrides chunkTimeout in tests
	logger     *zap.Logger
}

// NewSessionService creates the session controller. Segment files live in
// a process-owned temporary directory until their upload is confirmed.
func NewSessionService(
	session *entities.Session,
	sources repositories.SourceFactory,
	backend repositories.RecordingBackend,
	minMeeting MinMeetingLength,
	logger *zap.Logger,
) (*SessionService, error) {
	tempDir := filepath.Join(os.TempDir(), "rekam-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return nil, fmt.Errorf("create segment directory: %w", err)
	}

	s := &SessionService{
		session:    session,
		sources:    sources,
		backend:    backend,
		commands:   make(chan entities.Command, commandQueueDepth),
		tempDir:    tempDir,
		minMeeting: minMeeting,
		maxSegment: maxSegmentDuration,
		logger:     logger,
	}
	s.uploads = newUploadTracker(backend, session, logger)
	return s, nil
}

// Session exposes the session state for the control plane.
func (s *SessionService) Session() *entities.Session {
	return s.session
}

// Enqueue submits a session command for ordered processing.
func (s *SessionService) Enqueue(cmd entities.Command) {
	s.commands <- cmd
}

// Run processes commands until the context is cancelled. A recording in
// progress when the context ends is stopped cleanly first, and Run does
// not return until outstanding uploads and the finalize call have
// finished, so callers can treat its return as a full drain.
func (s *SessionService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if status, _ := s.session.Status(); status == entities.StatusRecording || status == entities.StatusPaused {
				s.handleStop()
			}
			s.finishing.Wait()
			return
		case cmd := <-s.commands:
			s.handle(cmd)
		}
	}
}

func (s *SessionService) handle(cmd entities.Command) {
	s.logger.Info("Processing session command", zap.String("command", string(cmd.Type)))
	switch cmd.Type {
	case entities.CommandStart:
		s.handleStart(cmd.RecordingID)
	case entities.CommandPause:
		s.handlePause()
	case entities.CommandResume:
		s.handleResume()
	case entities.CommandStop:
		s.handleStop()
	default:
		s.logger.Warn("Unknown session command", zap.String("command", string(cmd.Type)))
	}
}

func (s *SessionService) handleStart(recordingID int64) {
	status, _ := s.session.Status()
	switch status {
	case entities.StatusIdle, entities.StatusBackendOffline, entities.StatusError:
	default:
		s.logger.Warn("Ignoring start command", zap.String("status", string(status)))
		return
	}
	s.session.Begin(recordingID)
	s.launchWorker(recordingID, 1)
	s.logger.Info("Recording started", zap.Int64("recording_id", recordingID))
}

func (s *SessionService) handlePause() {
	if status, _ := s.session.Status(); status != entities.StatusRecording {
		s.logger.Warn("Ignoring pause command", zap.String("status", string(status)))
		return
	}
	s.session.Recording.Store(false)
	s.joinWorker()
	s.session.MarkPaused()
	s.logger.Info("Recording paused", zap.Duration("active", s.session.Duration()))
}

func (s *SessionService) handleResume() {
	if status, _ := s.session.Status(); status != entities.StatusPaused {
		s.logger.Warn("Ignoring resume command", zap.String("status", string(status)))
		return
	}
	recordingID := s.session.RecordingID()
	sequence := s.session.Sequence()
	s.session.MarkResumed()
	s.launchWorker(recordingID, sequence)
	s.logger.Info("Recording resumed",
		zap.Int64("recording_id", recordingID),
		zap.Int64("sequence", sequence))
}

func (s *SessionService) handleStop() {
	status, _ := s.session.Status()
	if status != entities.StatusRecording && status != entities.StatusPaused {
		s.logger.Warn("Ignoring stop command", zap.String("status", string(status)))
		return
	}
	s.session.Recording.Store(false)
	s.joinWorker()
	total := s.session.MarkStopping()
	recordingID := s.session.RecordingID()
	s.logger.Info("Recording stopped",
		zap.Int64("recording_id", recordingID),
		zap.Duration("total", total))

	// Outstanding uploads and the finalize/discard decision must not
	// block command processing, but shutdown has to wait for them.
	s.finishing.Add(1)
	go func() {
		defer s.finishing.Done()
		s.finishRecording(recordingID, total)
	}()
}

// launchWorker starts the capture+mixing goroutine for one recording
// interval. The worker owns the segment files from creation to upload
// submission.
func (s *SessionService) launchWorker(recordingID, sequence int64) {
	done := make(chan struct{})
	s.workerDone = done
	go func() {
		defer close(done)
		if err := s.recordSegments(recordingID, sequence); err != nil {
			s.logger.Error("Recording worker failed", zap.Error(err))
			s.session.SetError(err.Error())
		}
	}()
}

// joinWorker blocks until the in-flight segment worker has exited. This
// guarantees the segment's upload has been submitted, though not
// necessarily completed.
func (s *SessionService) joinWorker() {
	if s.workerDone != nil {
		<-s.workerDone
		s.workerDone = nil
	}
}

// finishRecording awaits outstanding segment uploads, then finalizes the
// recording or discards it when the meeting was shorter than the
// configured minimum. Discarding prefers delete but falls back to finalize
// so the user can still manage the artifact by hand.
func (s *SessionService) finishRecording(recordingID int64, total time.Duration) {
	s.uploads.Wait()

	if recordingID != 0 {
		ctx := context.Background()
		minLength := s.minMeeting()
		if minLength > 0 && total < minLength {
			s.logger.Info("Recording below minimum meeting length, discarding",
				zap.Int64("recording_id", recordingID),
				zap.Duration("total", total),
				zap.Duration("minimum", minLength))
			if err := s.backend.Delete(ctx, recordingID); err != nil {
				s.logger.Error("Failed to delete short recording, finalizing instead",
					zap.Int64("recording_id", recordingID), zap.Error(err))
				if err := s.backend.Finalize(ctx, recordingID); err != nil {
					s.logger.Error("Failed to finalize recording",
						zap.Int64("recording_id", recordingID), zap.Error(err))
				}
			}
		} else {
			if err := s.backend.Finalize(ctx, recordingID); err != nil {
				s.logger.Error("Failed to finalize recording",
					zap.Int64("recording_id", recordingID), zap.Error(err))
			} else {
				s.logger.Info("Recording finalized", zap.Int64("recording_id", recordingID))
			}
		}
	}

	s.session.Reset()
}
