package bulkhead

import "errors"

// ErrBulkheadFull is returned when a call cannot be admitted within the
// bulkhead's wait or queue budget. Shared by Bulkhead and
// ThreadPoolBulkhead.
var ErrBulkheadFull = errors.New("bulkhead: at capacity")

// ErrClosed is returned by a ThreadPoolBulkhead after Close.
var ErrClosed = errors.New("bulkhead: closed")
