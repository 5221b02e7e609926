package circuitbreaker

import "errors"

// ErrCallNotPermitted is returned when the breaker rejects a call without
// invoking it: the state is Open or ForcedOpen, or the half-open probe
// quota is exhausted.
var ErrCallNotPermitted = errors.New("circuitbreaker: call not permitted")
