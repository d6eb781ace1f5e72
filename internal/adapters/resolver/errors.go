package resolver

import "errors"

// ErrUnknownSensor reports a sensor id the resolver has no mapping for.
var ErrUnknownSensor = errors.New("unknown sensor")
