package config

// UserSpec identifies one platform member whose Codeforces activity is tracked.
type UserSpec struct {
	ID     int64  `yaml:"id"`
	Handle string `yaml:"handle"`
}

// WatchSpec tunes the contest watcher.
type WatchSpec struct {
	// PollInterval is how often the contest list is scanned, e.g. "10m".
	PollInterval string `yaml:"poll_interval,omitempty"`
	// ReminderWindow is how far ahead of a contest start reminders fire, e.g. "24h".
	ReminderWindow string `yaml:"reminder_window,omitempty"`
}

// Config represents the top-level configuration.
type Config struct {
	Users []UserSpec `yaml:"users"`
	Watch WatchSpec  `yaml:"watch,omitempty"`
}
