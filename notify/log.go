package notify

import "log"

// LogNotifier writes notices to the process log. Used as the default sink
// so the engine always has somewhere to report to.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	log.Printf("[%s] %s: %s", n.Severity, n.Title, n.Description)
}
