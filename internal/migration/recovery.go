package migration

import (
	"fmt"
	"strings"

	"github.com/ottermq/qhop/internal/core/models"
)

// recoveryHint describes the broker state left behind when a migration stops
// at step, for the operator who has to finish it by hand.
func recoveryHint(step Step, o *Outcome) string {
	switch step {
	case StepStart, StepFetchSettings, StepCheckPolicy, StepFetchBindings:
		return "No changes were made to the broker."
	case StepCreateTemp:
		return fmt.Sprintf("Original queue %q is untouched. Check whether temporary queue %q was created and delete it if it is empty.",
			o.Queue, o.TempQueue)
	case StepMoveForward:
		return fmt.Sprintf("Original queue %q still exists. Temporary queue %q exists and holds %d relocated message(s); move them back to %q, then delete it.",
			o.Queue, o.TempQueue, o.MovedForward, o.Queue)
	case StepDeleteOriginal:
		return fmt.Sprintf("Original queue %q and temporary queue %q both exist; all %d message(s) are in %q. Move them back or delete the original queue and resume.",
			o.Queue, o.TempQueue, o.MovedForward, o.TempQueue)
	case StepRecreateOriginal:
		return fmt.Sprintf("Queue %q does not exist. All %d message(s) are in temporary queue %q. Recreate %q as a %s queue, restore its bindings (%s) and move the messages back.",
			o.Queue, o.MovedForward, o.TempQueue, o.Queue, o.Target, describeBindings(o.Bindings))
	case StepRebind:
		return fmt.Sprintf("Queue %q was recreated as a %s queue but only %d of %d binding(s) were restored; missing: %s. All %d message(s) are still in temporary queue %q.",
			o.Queue, o.Target, o.Rebound, len(o.Bindings), describeBindings(o.Bindings[o.Rebound:]), o.MovedForward, o.TempQueue)
	case StepMoveBack:
		return fmt.Sprintf("Queue %q is recreated with its bindings. %d of %d message(s) were moved back; the rest are in temporary queue %q.",
			o.Queue, o.MovedBack, o.MovedForward, o.TempQueue)
	case StepVerifyCount:
		return fmt.Sprintf("Message count mismatch: %d moved forward, %d moved back. Temporary queue %q was kept; inspect both queues before deleting it.",
			o.MovedForward, o.MovedBack, o.TempQueue)
	case StepDeleteTemp:
		return fmt.Sprintf("Migration is complete. Delete temporary queue %q manually.", o.TempQueue)
	default:
		return ""
	}
}

func describeBindings(bindings []models.Binding) string {
	if len(bindings) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s -> %q", b.Source, b.RoutingKey))
	}
	return strings.Join(parts, ", ")
}
