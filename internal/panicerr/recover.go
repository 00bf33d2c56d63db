package panicerr

// Recover runs f in a new goroutine, converting any panic or abnormal exit
// into a non-nil error return. Typed errors passed to panic stay reachable
// through errors.As on the result.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer recoverExitError(name, errch)
		defer recoverPanicError(name, errch)
		errch <- f()
	}()
	return <-errch
}
