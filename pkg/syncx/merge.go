package syncx

import "github.com/hangarshare/cli/pkg/api"

// Merge folds one change event into a collection and returns the
// result without mutating the input. A nil collection means no base
// dataset exists yet; events arriving before that are dropped. Each
// operation is idempotent, so at-least-once delivery can only no-op,
// never corrupt.
func Merge(current []api.Record, ev Event) []api.Record {
	if current == nil {
		return nil
	}

	switch ev.Kind {
	case KindInsert:
		return mergeInsert(current, ev)
	case KindUpdate:
		return mergeUpdate(current, ev)
	case KindDelete:
		return mergeDelete(current, ev)
	default:
		return current
	}
}

func mergeInsert(current []api.Record, ev Event) []api.Record {
	for _, r := range current {
		if r.ID == ev.Record.ID {
			return current // Duplicate delivery
		}
	}

	out := make([]api.Record, len(current), len(current)+1)
	copy(out, current)
	return append(out, ev.Record)
}

func mergeUpdate(current []api.Record, ev Event) []api.Record {
	for i, r := range current {
		if r.ID != ev.Record.ID {
			continue
		}

		// Shallow-merge the delivered fields over the stored record.
		// Fields absent from the payload keep their stored value.
		merged := r
		if len(ev.Raw) > 0 {
			if err := jsonCodec.Unmarshal(ev.Raw, &merged); err != nil {
				merged = ev.Record
			}
		} else {
			merged = ev.Record
		}
		merged.ID = r.ID

		out := make([]api.Record, len(current))
		copy(out, current)
		out[i] = merged
		return out
	}
	return current
}

func mergeDelete(current []api.Record, ev Event) []api.Record {
	for i, r := range current {
		if r.ID != ev.Record.ID {
			continue
		}
		out := make([]api.Record, 0, len(current)-1)
		out = append(out, current[:i]...)
		return append(out, current[i+1:]...)
	}
	return current
}
