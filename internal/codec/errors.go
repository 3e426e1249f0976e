package codec

import "errors"

var (
	// ErrSchemaMismatch is returned for documents written by an unknown version.
	ErrSchemaMismatch = errors.New("codec: unsupported document version")

	// ErrCorrupt is returned when a document decodes but does not describe a valid scene.
	ErrCorrupt = errors.New("codec: corrupt document")

	// ErrUnknownFormat is returned for file extensions with no matching format.
	ErrUnknownFormat = errors.New("codec: unknown format")
)
