package coordinator

import "errors"

// Sentinel errors returned by the coordinator and its collaborators.
// Callers should compare with errors.Is, never string matching.
var (
	ErrAlreadyStopping    = errors.New("coordinator: already stopping, audio ignored")
	ErrDecoderUnavailable = errors.New("coordinator: decoder unavailable after restart attempts")
	ErrInvalidConfig      = errors.New("coordinator: invalid configuration")
	ErrSummarizerFailed   = errors.New("coordinator: summarizer inference failed")
	ErrParserFailed       = errors.New("coordinator: parser invocation failed")
	ErrNilCollaborator    = errors.New("coordinator: required external collaborator is nil")
)
