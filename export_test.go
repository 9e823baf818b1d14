package ttylog

// ResetDefault forgets the process-wide logger so Init can run again.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = nil
}
