package series

import "errors"

// ErrLenMismatch is returned when time and value columns differ in length.
var ErrLenMismatch = errors.New("time column has a different length than values")
