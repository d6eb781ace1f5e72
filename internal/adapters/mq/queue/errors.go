package queue

import "errors"

// ErrRejected is returned by callers when Enqueue refused a task.
var ErrRejected = errors.New("task rejected by queue")
