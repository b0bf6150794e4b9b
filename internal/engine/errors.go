package engine

import "errors"

// ErrSessionMissing is returned by Unredact when the session id is unknown
// to the store or has expired. Callers convert it to a user-visible
// error-as-value response rather than a transport fault.
var ErrSessionMissing = errors.New("session missing or expired")
