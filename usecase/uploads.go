package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

// uploadTracker runs segment uploads concurrently with the next segment's
// recording so the mixing loop never blocks on network I/O. Each upload is
// fire-and-forget but tracked, and all outstanding uploads are awaited
// only when the session is stopping.
type uploadTracker struct {
	backend repositories.RecordingBackend
	session *entities.Session
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func newUploadTracker(backend repositories.RecordingBackend, session *entities.Session, logger *zap.Logger) *uploadTracker {
	return &uploadTracker{backend: backend, session: session, logger: logger}
}

// Submit spawns the upload task for one finalized segment. A permanently
// failed upload preserves the local file and does not abort the session;
// the meeting keeps recording.
func (u *uploadTracker) Submit(segment entities.Segment) {
	u.session.AddPendingUpload()
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		if err := u.backend.UploadSegment(context.Background(), segment); err != nil {
			u.logger.Error("Segment upload failed permanently, file preserved",
				zap.Int64("recording_id", segment.RecordingID),
				zap.Int64("sequence", segment.Sequence),
				zap.String("path", segment.Path),
				zap.Error(err))
			return
		}
		u.session.CompleteUpload()
	}()
}

// Wait blocks until every submitted upload has finished, successfully or
// not.
func (u *uploadTracker) Wait() {
	u.wg.Wait()
}
