package genui

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestDecodeServerMessage(t *testing.T) {
	message, err := DecodeServerMessage([]byte(`{
		"surfaceUpdate": {
			"surfaceId": "s1",
			"components": [
				{"id": "root", "component": {"column": {"children": ["title"]}}}
			]
		}
	}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, message.SurfaceId(), "s1")
	assert.Equal(t, len(message.SurfaceUpdate.Components), 1)
	assert.Equal(t, message.SurfaceUpdate.Components[0].Id, "root")

	message, err = DecodeServerMessage([]byte(`{"beginRendering": {"surfaceId": "s1", "root": "root"}}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, message.BeginRendering.Root, "root")

	message, err = DecodeServerMessage([]byte(`{"dataModelUpdate": {"surfaceId": "s1", "path": "/a/b", "contents": 2}}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, *message.DataModelUpdate.Path, "/a/b")
	assert.Equal(t, message.DataModelUpdate.Contents, float64(2))

	// path defaults to the whole document
	message, err = DecodeServerMessage([]byte(`{"dataModelUpdate": {"surfaceId": "s1", "contents": {}}}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, message.DataModelUpdate.Path, nil)

	message, err = DecodeServerMessage([]byte(`{"surfaceDeletion": {"surfaceId": "s1"}}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, message.SurfaceDeletion.SurfaceId, "s1")
}

func TestDecodeServerMessageErrors(t *testing.T) {
	// empty envelope
	_, err := DecodeServerMessage([]byte(`{}`))
	assert.NotEqual(t, err, nil)

	// more than one variant
	_, err = DecodeServerMessage([]byte(`{
		"beginRendering": {"surfaceId": "s1", "root": "root"},
		"surfaceDeletion": {"surfaceId": "s1"}
	}`))
	assert.NotEqual(t, err, nil)

	// not json
	_, err = DecodeServerMessage([]byte(`nope`))
	assert.NotEqual(t, err, nil)
}

func TestServerMessageCodecRoundTrip(t *testing.T) {
	message := &ServerMessage{
		SurfaceUpdate: &SurfaceUpdate{
			SurfaceId: "s1",
			Components: []*Component{
				{
					Id: "title",
					Component: map[string]any{
						"text": map[string]any{
							"label": map[string]any{"path": "/title"},
						},
					},
				},
			},
		},
	}
	messageBytes, err := EncodeServerMessage(message)
	assert.Equal(t, err, nil)

	decoded, err := DecodeServerMessage(messageBytes)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded, message)
}

func TestUserActionMessage(t *testing.T) {
	event := &UserActionEvent{
		SurfaceId:         "s1",
		Name:              "submit",
		SourceComponentId: "button1",
		Time:              time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Context: map[string]any{
			"value": "x",
		},
	}
	message := NewUserActionMessage(event)
	messageBytes, err := EncodeClientMessage(message)
	assert.Equal(t, err, nil)

	var decoded map[string]any
	err = json.Unmarshal(messageBytes, &decoded)
	assert.Equal(t, err, nil)

	userAction, ok := decoded["userAction"].(map[string]any)
	assert.Equal(t, ok, true)
	assert.Equal(t, userAction["surfaceId"], "s1")
	assert.Equal(t, userAction["name"], "submit")
	assert.Equal(t, userAction["sourceComponentId"], "button1")
	assert.Equal(t, userAction["timestamp"], "2024-05-01T12:30:00Z")
	assert.Equal(t, userAction["isAction"], true)
	assert.Equal(t, userAction["context"], map[string]any{"value": "x"})
}

func TestUserActionMessageNilContext(t *testing.T) {
	message := NewUserActionMessage(&UserActionEvent{
		SurfaceId: "s1",
		Name:      "tap",
		Time:      time.Now(),
	})
	assert.Equal(t, message.UserAction.Context, map[string]any{})
}
