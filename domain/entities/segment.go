package entities

// Segment is one bounded-duration span of mixed audio written to a single
// WAV file. It is handed to the upload pipeline as soon as it is finalized
// and deleted locally only after a confirmed upload.
type Segment struct {
	RecordingID int64
	Sequence    int64
	SampleRate  int
	Path        string
}
