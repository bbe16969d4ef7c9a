package canvascap

import "errors"

var (
	// ErrMissingCollaborator means a page control or engine accessor the
	// session needs could not be found. Nothing is captured.
	ErrMissingCollaborator = errors.New("canvascap: missing collaborator")

	// ErrEmptyCanvas means the canvas has zero width or height at the
	// effective scale.
	ErrEmptyCanvas = errors.New("canvascap: empty canvas")

	// ErrEncode means the stitched buffer could not be encoded or the
	// encoded image did not decode back to the expected size.
	ErrEncode = errors.New("canvascap: encode failed")

	// ErrPresent means the presentation sink rejected the finished image.
	ErrPresent = errors.New("canvascap: present failed")
)
