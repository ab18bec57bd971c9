package analyzer

import (
	"github.com/ottermq/qhop/internal/core/capability"
	"github.com/ottermq/qhop/internal/core/models"
)

// FilterArguments returns a copy of args without the keys target does not
// support, along with the keys that were actually removed in matrix order.
func FilterArguments(args models.Arguments, target string) (models.Arguments, []string, error) {
	entry, err := capability.Lookup(target)
	if err != nil {
		return nil, nil, err
	}
	out := args.Clone()
	var removed []string
	for _, key := range entry.UnsupportedKeys {
		if out.Has(key) {
			delete(out, key)
			removed = append(removed, key)
		}
	}
	return out, removed, nil
}

// PrepareArguments filters args for target and sets the queue type marker.
func PrepareArguments(args models.Arguments, target string) (models.Arguments, []string, error) {
	out, removed, err := FilterArguments(args, target)
	if err != nil {
		return nil, nil, err
	}
	out[models.QueueTypeArgument] = target
	return out, removed, nil
}
