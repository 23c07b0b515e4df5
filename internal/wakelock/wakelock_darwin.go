package wakelock

// acquire prevents display and idle sleep with caffeinate.
func acquire() (*Lock, error) {
	return startCommand("caffeinate", "-d", "-i")
}
