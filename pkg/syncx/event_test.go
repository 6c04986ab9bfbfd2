package syncx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationInsert(t *testing.T) {
	data := notification(KindInsert, "new", map[string]interface{}{
		"id":    "a",
		"title": "Alpha",
	})

	ev, err := ParseNotification(data)

	require.NoError(t, err)
	assert.Equal(t, KindInsert, ev.Kind)
	assert.Equal(t, "a", ev.Record.ID)
	assert.Equal(t, "Alpha", ev.Record.Title)
	assert.NotEmpty(t, ev.Raw)
}

func TestParseNotificationDeleteUsesOldRecord(t *testing.T) {
	data := notification(KindDelete, "old", map[string]interface{}{
		"id": "a",
	})

	ev, err := ParseNotification(data)

	require.NoError(t, err)
	assert.Equal(t, KindDelete, ev.Kind)
	assert.Equal(t, "a", ev.Record.ID)
}

func TestParseNotificationRejectsMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("not json at all")},
		{"unknown event type", notification("TRUNCATE", "new", map[string]interface{}{"id": "a"})},
		{"insert missing new", []byte(`{"event_type":"INSERT"}`)},
		{"update missing new", []byte(`{"event_type":"UPDATE","old":{"id":"a"}}`)},
		{"delete missing old", []byte(`{"event_type":"DELETE","new":{"id":"a"}}`)},
		{"record without id", notification(KindInsert, "new", map[string]interface{}{"title": "Alpha"})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseNotification(tc.data)
			assert.Error(t, err)
		})
	}
}
