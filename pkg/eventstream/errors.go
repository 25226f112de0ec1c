package eventstream

import "errors"

// ErrNilIngestionEvent indicates a nil ingestion event payload was provided to a publisher.
var ErrNilIngestionEvent = errors.New("nil ingestion event")
