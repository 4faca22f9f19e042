package session

import "errors"

// ErrNotConnected is returned by SubmitInput when the session is not
// in StateConnected.
var ErrNotConnected = errors.New("session: not connected")
