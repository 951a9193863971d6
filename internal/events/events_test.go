package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 17, 9, 30, 15, 123456700, time.UTC)

func TestRoutingKeyMapping(t *testing.T) {
	expected := map[EventType]string{
		EventTypeCreated:   "task.created",
		EventTypeUpdated:   "task.updated",
		EventTypeCompleted: "task.completed",
		EventTypeDeleted:   "task.deleted",
	}

	for eventType, key := range expected {
		assert.Equal(t, key, eventType.RoutingKey())
		assert.Equal(t, key, EventType(RoutingKeyPrefix+string(eventType)).RoutingKey(),
			"a leading domain prefix is stripped before deriving the key")
	}
}

func TestParseEventType(t *testing.T) {
	testCases := []struct {
		input   string
		want    EventType
		wantErr bool
	}{
		{"created", EventTypeCreated, false},
		{"task.updated", EventTypeUpdated, false},
		{"completed", EventTypeCompleted, false},
		{"task.deleted", EventTypeDeleted, false},
		{"archived", "", true},
		{"task.", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseEventType(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownEventType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConstructors(t *testing.T) {
	task := &domain.Task{ID: "t-1", Description: "buy milk"}
	local := fixedTime.In(time.FixedZone("UTC+2", 2*60*60))

	created := NewTaskCreated(task, local)
	assert.Equal(t, EventTypeCreated, created.Type)
	assert.Equal(t, "t-1", created.TaskID)
	assert.Equal(t, "buy milk", created.Description)
	assert.False(t, created.IsCompleted)
	assert.Equal(t, time.UTC, created.Timestamp.Location())

	assert.Equal(t, EventTypeUpdated, NewTaskUpdated(task, fixedTime).Type)

	done := &domain.Task{ID: "t-1", Description: "buy milk", IsCompleted: true}
	completed := NewTaskUpdated(done, fixedTime)
	assert.Equal(t, EventTypeCompleted, completed.Type)
	assert.True(t, completed.IsCompleted)

	deleted := NewTaskDeleted(task, fixedTime)
	assert.Equal(t, EventTypeDeleted, deleted.Type)
	assert.Equal(t, "task.deleted", deleted.RoutingKey())
}

func TestMarshalJSONWireFormat(t *testing.T) {
	event := NewTaskCreated(&domain.Task{ID: "t-1", Description: "buy milk"}, fixedTime)

	body, err := json.Marshal(event)

	require.NoError(t, err)
	assert.Equal(t,
		`{"event_type":"created","task_id":"t-1","description":"buy milk","is_completed":false,"timestamp":"2024-05-17T09:30:15.1234567Z"}`,
		string(body))
}

func TestMarshalJSONKeepsTrailingZeros(t *testing.T) {
	event := NewTaskDeleted(&domain.Task{ID: "t-2", Description: "x"}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	body, err := json.Marshal(event)

	require.NoError(t, err)
	assert.Contains(t, string(body), `"timestamp":"2024-01-01T00:00:00.0000000Z"`)
}

func TestUnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want TaskEvent
	}{
		{
			name: "current format",
			body: `{"event_type":"completed","task_id":"t-1","description":"buy milk","is_completed":true,"timestamp":"2024-05-17T09:30:15.1234567Z"}`,
			want: TaskEvent{Type: EventTypeCompleted, TaskID: "t-1", Description: "buy milk", IsCompleted: true, Timestamp: fixedTime},
		},
		{
			name: "legacy prefixed type without zone",
			body: `{"event_type":"task.deleted","task_id":"t-2","description":"walk dog","is_completed":false,"timestamp":"2024-05-17T09:30:15.123456"}`,
			want: TaskEvent{
				Type: EventTypeDeleted, TaskID: "t-2", Description: "walk dog",
				Timestamp: time.Date(2024, 5, 17, 9, 30, 15, 123456000, time.UTC),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got TaskEvent
			require.NoError(t, json.Unmarshal([]byte(tc.body), &got))
			assert.Equal(t, tc.want.Type, got.Type)
			assert.Equal(t, tc.want.TaskID, got.TaskID)
			assert.Equal(t, tc.want.Description, got.Description)
			assert.Equal(t, tc.want.IsCompleted, got.IsCompleted)
			assert.True(t, tc.want.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", tc.want.Timestamp, got.Timestamp)
		})
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	var event TaskEvent

	err := json.Unmarshal([]byte(`{"event_type":"archived","task_id":"t","timestamp":"2024-05-17T09:30:15Z"}`), &event)
	assert.ErrorIs(t, err, ErrUnknownEventType)

	err = json.Unmarshal([]byte(`{"event_type":"created","task_id":"t","timestamp":"yesterday"}`), &event)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`not json`), &event)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, TaskEvent{Type: EventTypeCreated, TaskID: "t-1"}.Validate())
	assert.ErrorIs(t, TaskEvent{Type: "archived", TaskID: "t-1"}.Validate(), ErrUnknownEventType)
	assert.ErrorIs(t, TaskEvent{Type: EventTypeCreated}.Validate(), domain.ErrEmptyTaskID)
}
