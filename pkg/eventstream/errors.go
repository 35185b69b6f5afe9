package eventstream

import "errors"

// ErrNilRequestEvent indicates a nil request event payload was provided to a publisher.
var ErrNilRequestEvent = errors.New("nil request event")
