package repositories

import (
	"context"

	"github.com/satriahrh/rekam/domain/entities"
)

// RecordingBackend defines the remote recording service operations the
// agent depends on. Reachability and authentication are the backend's
// concern; implementations are expected to retry transient failures
// internally and return only permanent errors.
type RecordingBackend interface {
	// CreateRecording registers a new recording and returns the
	// identifier subsequent segment uploads are addressed by.
	CreateRecording(ctx context.Context, name string) (int64, error)

	// UploadSegment ships one finalized segment file. On confirmed
	// success the local file is deleted; on permanent failure the file
	// is preserved for manual retry and an error is returned.
	UploadSegment(ctx context.Context, segment entities.Segment) error

	// Finalize marks the remote recording complete.
	Finalize(ctx context.Context, recordingID int64) error

	// Delete discards a recording, used for meetings shorter than the
	// configured minimum.
	Delete(ctx context.Context, recordingID int64) error

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
