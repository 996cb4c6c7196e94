package sqlrewrite

import "errors"

// ErrRewriteFailure is returned when a drill-down query cannot be synthesized
// because the source query names no table.
var ErrRewriteFailure = errors.New("datalab: rewrite failure")
