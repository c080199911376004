package reconcile

import (
	"errors"

	"github.com/systmms/appcfg/internal/validation"
)

// Action is the kind of a decision record.
type Action string

const (
	ActionAdd     Action = "ADD"
	ActionUpdate  Action = "UPDATE"
	ActionNoop    Action = "NOOP"
	ActionDelete  Action = "DELETE"
	ActionWarning Action = "WARNING"
)

var (
	// ErrBlocked means the validation gate refused the run; nothing was sent
	// to the store.
	ErrBlocked = errors.New("document has validation errors; no changes were made")

	// ErrItemFailures means a best-effort run finished but some mutations failed.
	ErrItemFailures = errors.New("one or more changes failed")
)

// Decision is one record emitted by the engine. Err is set when the
// decided mutation was attempted and failed.
type Decision struct {
	Action    Action `json:"action"`
	Key       string `json:"key"`
	Label     string `json:"label,omitempty"`
	SecretRef bool   `json:"secret_ref,omitempty"`
	DryRun    bool   `json:"dry_run"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// Mutates reports whether the decision changes the store.
func (d Decision) Mutates() bool {
	return d.Action == ActionAdd || d.Action == ActionUpdate || d.Action == ActionDelete
}

// Report is the outcome of an import or cleanup run.
type Report struct {
	DryRun    bool                    `json:"dry_run"`
	Blocked   bool                    `json:"blocked"`
	Decisions []Decision              `json:"decisions"`
	Problems  []validation.FieldError `json:"-"`
	Failures  []error                 `json:"-"`
}

// Count returns how many decisions have the given action.
func (r *Report) Count(a Action) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Action == a {
			n++
		}
	}
	return n
}

// Succeeded reports whether the run was neither blocked nor had failures.
func (r *Report) Succeeded() bool {
	return !r.Blocked && len(r.Failures) == 0
}
