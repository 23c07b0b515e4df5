package wakelock

// acquire inhibits idle and sleep through logind for the lifetime of a
// systemd-inhibit child.
func acquire() (*Lock, error) {
	return startCommand("systemd-inhibit",
		"--what=idle:sleep",
		"--who=stillness",
		"--why=Meditation session",
		"--mode=block",
		"sleep", "infinity")
}
