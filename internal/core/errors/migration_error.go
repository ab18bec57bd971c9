package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies why a migration stopped.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTransient
	KindValidation
	KindDataIntegrity
	KindPartialMigration
	KindCancelled
	KindCleanup
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindNotFound:         "not_found",
	KindTransient:        "transient",
	KindValidation:       "validation",
	KindDataIntegrity:    "data_integrity",
	KindPartialMigration: "partial_migration",
	KindCancelled:        "cancelled",
	KindCleanup:          "cleanup",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MigrationError is returned by the orchestrator whenever a migration does not
// reach its final state.
type MigrationError struct {
	kind    Kind
	step    string
	vhost   string
	queue   string
	reasons []string
	cause   error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration of %q in vhost %q %s at %s", e.queue, e.vhost, e.kind, e.step)
	if len(e.reasons) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.reasons, "; "))
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.cause
}

func (e *MigrationError) Kind() Kind {
	return e.kind
}

func (e *MigrationError) Step() string {
	return e.step
}

func (e *MigrationError) VHost() string {
	return e.vhost
}

func (e *MigrationError) Queue() string {
	return e.queue
}

func (e *MigrationError) Reasons() []string {
	return e.reasons
}

func NewMigrationError(kind Kind, step, vhost, queue string, cause error, reasons ...string) *MigrationError {
	return &MigrationError{
		kind:    kind,
		step:    step,
		vhost:   vhost,
		queue:   queue,
		reasons: reasons,
		cause:   cause,
	}
}

// KindOf returns the kind of the first MigrationError in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var me *MigrationError
	if stderrors.As(err, &me) {
		return me.kind
	}
	return KindUnknown
}

// Is reports whether err carries a MigrationError of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
