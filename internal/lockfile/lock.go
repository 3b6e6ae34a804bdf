package lockfile

// ErrLocked is returned when a lock cannot be acquired because it is held by another process.
var ErrLocked = errLockHeld

// IsLocked returns true if the error indicates a lock is held by another process.
func IsLocked(err error) bool {
	return err == errLockHeld
}
