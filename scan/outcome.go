package scan

import "context"

// Outcome is the result of checking a candidate code against the remote
// collaborator before it is accepted into a ledger. Only OutcomeAccepted
// causes a ledger mutation.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeNotFound
	OutcomeAlreadyFinished
	OutcomeMalformed
	// OutcomeTransportError means the check never completed. The code is
	// neither accepted nor known-bad; the user retries manually.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeNotFound:
		return "not found"
	case OutcomeAlreadyFinished:
		return "already finished"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// CodeChecker corroborates a scanned code against the server-known set for
// a work order. A transport failure is returned as err alongside
// OutcomeTransportError; the caller must leave the ledger untouched and let
// the user retry manually.
type CodeChecker interface {
	CheckCode(ctx context.Context, workOrderNo, code string) (Outcome, string, error)
}

// CodeCheckerFunc adapts a function to the CodeChecker interface.
type CodeCheckerFunc func(ctx context.Context, workOrderNo, code string) (Outcome, string, error)

func (f CodeCheckerFunc) CheckCode(ctx context.Context, workOrderNo, code string) (Outcome, string, error) {
	return f(ctx, workOrderNo, code)
}
