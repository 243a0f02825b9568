package notify

// Severity of a user-facing notice.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// KindSubmission tags notices that carry the final result of a bulk
// submission. Everything without it is scan-level chatter.
const KindSubmission = "submission"

// Notice is one transient user-facing message. The engine emits these on
// every validator outcome, capacity rejection and submission result.
type Notice struct {
	Kind        string `json:"kind,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Notifier is the notification sink. Implementations must not block the
// caller and must never return control flow back into the engine.
type Notifier interface {
	Notify(n Notice)
}

// Multi fans a notice out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(n)
		}
	}
}

// Func adapts a plain function to the Notifier interface.
type Func func(n Notice)

func (f Func) Notify(n Notice) { f(n) }
