package ratelimiter

import "errors"

// ErrRequestNotPermitted is returned by Execute when the requested permits
// could not be granted within the timeout.
var ErrRequestNotPermitted = errors.New("ratelimiter: request not permitted")
