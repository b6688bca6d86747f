package bbs

// ErrIdleTimeout is returned by Transport.ReadLine when the peer sent
// nothing for the configured idle window. Sessions treat it the same as a
// disconnect.
var ErrIdleTimeout = errorString("idle_timeout")

type errorString string

func (e errorString) Error() string { return string(e) }
