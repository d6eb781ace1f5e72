package splice

import "errors"

// ErrNoCutoff is returned when the ground truth has no usable observation.
var ErrNoCutoff = errors.New("no ground truth observation to cut at")
