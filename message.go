package genui

import (
	"encoding/json"
	"fmt"
	"time"
)

// wire protocol between the agent and the client.
// each server message is a json object with exactly one variant key:
//   {"surfaceUpdate": {...}}
//   {"beginRendering": {...}}
//   {"dataModelUpdate": {...}}
//   {"surfaceDeletion": {...}}
// the field names are part of the wire contract

type Component struct {
	Id string `json:"id"`
	// kind-tagged property bundle, e.g. {"text": {"label": {...}}}.
	// interpretation belongs to the renderer
	Component map[string]any `json:"component"`
}

type SurfaceUpdate struct {
	SurfaceId  string       `json:"surfaceId"`
	Components []*Component `json:"components"`
}

type BeginRendering struct {
	SurfaceId string `json:"surfaceId"`
	Root      string `json:"root"`
}

type DataModelUpdate struct {
	SurfaceId string  `json:"surfaceId"`
	Path      *string `json:"path,omitempty"`
	Contents  any     `json:"contents"`
}

type SurfaceDeletion struct {
	SurfaceId string `json:"surfaceId"`
}

// closed set of message variants. exactly one field is non-nil
type ServerMessage struct {
	SurfaceUpdate   *SurfaceUpdate   `json:"surfaceUpdate,omitempty"`
	BeginRendering  *BeginRendering  `json:"beginRendering,omitempty"`
	DataModelUpdate *DataModelUpdate `json:"dataModelUpdate,omitempty"`
	SurfaceDeletion *SurfaceDeletion `json:"surfaceDeletion,omitempty"`
}

func (self *ServerMessage) SurfaceId() string {
	switch {
	case self.SurfaceUpdate != nil:
		return self.SurfaceUpdate.SurfaceId
	case self.BeginRendering != nil:
		return self.BeginRendering.SurfaceId
	case self.DataModelUpdate != nil:
		return self.DataModelUpdate.SurfaceId
	case self.SurfaceDeletion != nil:
		return self.SurfaceDeletion.SurfaceId
	default:
		return ""
	}
}

func (self *ServerMessage) Validate() error {
	count := 0
	if self.SurfaceUpdate != nil {
		count += 1
	}
	if self.BeginRendering != nil {
		count += 1
	}
	if self.DataModelUpdate != nil {
		count += 1
	}
	if self.SurfaceDeletion != nil {
		count += 1
	}
	if count != 1 {
		return fmt.Errorf("server message must have exactly one variant, found %d", count)
	}
	return nil
}

func DecodeServerMessage(messageBytes []byte) (*ServerMessage, error) {
	message := &ServerMessage{}
	if err := json.Unmarshal(messageBytes, message); err != nil {
		return nil, err
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}
	return message, nil
}

func EncodeServerMessage(message *ServerMessage) ([]byte, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(message)
}

// an interaction reported by the renderer for one component
type UserActionEvent struct {
	SurfaceId         string
	Name              string
	SourceComponentId string
	Time              time.Time
	Context           map[string]any
}

// outbound envelope: {"userAction": {...}}
type UserAction struct {
	SurfaceId         string         `json:"surfaceId"`
	Name              string         `json:"name"`
	SourceComponentId string         `json:"sourceComponentId"`
	Timestamp         string         `json:"timestamp"`
	IsAction          bool           `json:"isAction,omitempty"`
	Context           map[string]any `json:"context"`
}

type ClientMessage struct {
	UserAction *UserAction `json:"userAction,omitempty"`
}

func NewUserActionMessage(event *UserActionEvent) *ClientMessage {
	context := event.Context
	if context == nil {
		context = map[string]any{}
	}
	return &ClientMessage{
		UserAction: &UserAction{
			SurfaceId:         event.SurfaceId,
			Name:              event.Name,
			SourceComponentId: event.SourceComponentId,
			Timestamp:         event.Time.UTC().Format(time.RFC3339Nano),
			IsAction:          true,
			Context:           context,
		},
	}
}

func EncodeClientMessage(message *ClientMessage) ([]byte, error) {
	return json.Marshal(message)
}

func DecodeClientMessage(messageBytes []byte) (*ClientMessage, error) {
	message := &ClientMessage{}
	if err := json.Unmarshal(messageBytes, message); err != nil {
		return nil, err
	}
	return message, nil
}
