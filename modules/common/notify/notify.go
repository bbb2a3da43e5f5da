package notify

// Notifier delivers short user-facing messages (fallback switches, batch
// summaries) to whatever UI transport is attached
type Notifier interface {
	Notify(message string)
}

// Func - plain function adapter
type Func func(message string)

func (f Func) Notify(message string) { f(message) }

// Discard - notifier that drops everything, for tests and headless runs
var Discard Notifier = Func(func(string) {})
