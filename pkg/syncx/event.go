// Package syncx keeps the browse view convergent across three sources:
// paginated queries, a background full-catalog preload, and the live
// change stream.
package syncx

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/hangarshare/cli/pkg/api"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind tags a change event
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// Event is a validated change notification. Raw holds the payload
// record as delivered, so updates can be shallow-merged over the stored
// record field by field.
type Event struct {
	Kind   Kind
	Record api.Record
	Raw    json.RawMessage
}

// InsertEvent builds an insert event for a record
func InsertEvent(record api.Record) Event {
	return Event{Kind: KindInsert, Record: record}
}

// UpdateEvent builds a full-record update event
func UpdateEvent(record api.Record) Event {
	return Event{Kind: KindUpdate, Record: record}
}

// DeleteEvent builds a delete event for a record id
func DeleteEvent(id string) Event {
	return Event{Kind: KindDelete, Record: api.Record{ID: id}}
}

// rawNotification is the wire shape of a change notification
type rawNotification struct {
	EventType string          `json:"event_type"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// ParseNotification validates a raw change payload and converts it into
// a tagged event. Payloads missing the record required by their kind
// are rejected here so malformed data never reaches the merge engine.
func ParseNotification(data []byte) (Event, error) {
	var raw rawNotification
	if err := jsonCodec.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("unparseable change notification: %w", err)
	}

	switch Kind(raw.EventType) {
	case KindInsert, KindUpdate:
		record, err := decodeRecord(raw.New)
		if err != nil {
			return Event{}, fmt.Errorf("%s event: %w", raw.EventType, err)
		}
		return Event{Kind: Kind(raw.EventType), Record: record, Raw: raw.New}, nil

	case KindDelete:
		record, err := decodeRecord(raw.Old)
		if err != nil {
			return Event{}, fmt.Errorf("DELETE event: %w", err)
		}
		return Event{Kind: KindDelete, Record: record, Raw: raw.Old}, nil

	default:
		return Event{}, fmt.Errorf("unknown event type %q", raw.EventType)
	}
}

func decodeRecord(raw json.RawMessage) (api.Record, error) {
	if len(raw) == 0 {
		return api.Record{}, fmt.Errorf("missing record payload")
	}

	var record api.Record
	if err := jsonCodec.Unmarshal(raw, &record); err != nil {
		return api.Record{}, fmt.Errorf("unparseable record payload: %w", err)
	}
	if record.ID == "" {
		return api.Record{}, fmt.Errorf("record payload has no id")
	}
	return record, nil
}
