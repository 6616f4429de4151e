package genui

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// the tool-call loop drives a request/response/tool-execution cycle against a
// model adapter. the adapter is the only provider-specific piece: it converts
// the history to the provider format, calls the provider, and extracts either
// tool calls or final text

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

type ToolCall struct {
	CallId string         `json:"callId"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
}

type ToolResult struct {
	CallId  string `json:"callId"`
	Name    string `json:"name"`
	Content any    `json:"content"`
	Error   string `json:"error,omitempty"`
}

type ChatMessage struct {
	Role        ChatRole      `json:"role"`
	Text        string        `json:"text,omitempty"`
	ToolCalls   []*ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []*ToolResult `json:"toolResults,omitempty"`
}

// either a non-empty ToolCalls or final text. a provider may return neither
type ModelResponse struct {
	Text      string
	HasText   bool
	ToolCalls []*ToolCall
}

type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

type ModelAdapter interface {
	Call(ctx context.Context, history []*ChatMessage, tools []*ToolDescriptor) (*ModelResponse, error)
}

type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Descriptor *ToolDescriptor
	Execute    ToolFunction
}

type ToolLoopErrorFunction func(err error)

type ToolLoop struct {
	adapter ModelAdapter

	mutex sync.Mutex
	tools map[string]*Tool
	order []string

	errorCallbacks *CallbackList[ToolLoopErrorFunction]
}

func NewToolLoop(adapter ModelAdapter) *ToolLoop {
	return &ToolLoop{
		adapter:        adapter,
		tools:          map[string]*Tool{},
		errorCallbacks: NewCallbackList[ToolLoopErrorFunction](),
	}
}

func (self *ToolLoop) AddTool(tool *Tool) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if _, ok := self.tools[tool.Descriptor.Name]; ok {
		return fmt.Errorf("tool %q already registered", tool.Descriptor.Name)
	}
	self.tools[tool.Descriptor.Name] = tool
	self.order = append(self.order, tool.Descriptor.Name)
	return nil
}

func (self *ToolLoop) Tools() []*ToolDescriptor {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	descriptors := make([]*ToolDescriptor, 0, len(self.order))
	for _, name := range self.order {
		descriptors = append(descriptors, self.tools[name].Descriptor)
	}
	return descriptors
}

// provider and transport errors are reported here in addition to being
// surfaced into the conversation
func (self *ToolLoop) AddErrorCallback(callback ToolLoopErrorFunction) func() {
	callbackId := self.errorCallbacks.Add(callback)
	return func() {
		self.errorCallbacks.Remove(callbackId)
	}
}

// runs the cycle until the provider returns no tool calls, then returns the
// final text and the grown history. the core enforces no iteration cap;
// a caller wanting one cancels `ctx`.
// on a provider error the history gains a descriptive synthetic message so a
// later run lets the model see and react to the failure
func (self *ToolLoop) Run(ctx context.Context, history []*ChatMessage) (string, []*ChatMessage, error) {
	for {
		select {
		case <-ctx.Done():
			return "", history, ctx.Err()
		default:
		}

		response, err := self.adapter.Call(ctx, history, self.Tools())
		if err != nil {
			self.reportError(err)
			history = append(history, &ChatMessage{
				Role: RoleUser,
				Text: fmt.Sprintf("The previous request failed: %s. Adjust and retry if possible.", err),
			})
			return "", history, err
		}

		if len(response.ToolCalls) == 0 {
			// note the provider may return neither text nor tool calls,
			// in which case the final text is empty
			history = append(history, &ChatMessage{
				Role: RoleAssistant,
				Text: response.Text,
			})
			return response.Text, history, nil
		}

		history = append(history, &ChatMessage{
			Role:      RoleAssistant,
			ToolCalls: response.ToolCalls,
		})

		// execute concurrently. the aggregate message preserves call order
		results := make([]*ToolResult, len(response.ToolCalls))
		wg := sync.WaitGroup{}
		for i, call := range response.ToolCalls {
			wg.Add(1)
			i := i
			call := call
			go HandleError(
				func() {
					defer wg.Done()
					results[i] = self.executeTool(ctx, call)
				},
				func() {
					if results[i] == nil {
						results[i] = &ToolResult{
							CallId: call.CallId,
							Name:   call.Name,
							Error:  "tool execution panicked",
						}
					}
				},
			)
		}
		wg.Wait()

		history = append(history, &ChatMessage{
			Role:        RoleTool,
			ToolResults: results,
		})
	}
}

func (self *ToolLoop) executeTool(ctx context.Context, call *ToolCall) *ToolResult {
	self.mutex.Lock()
	tool, ok := self.tools[call.Name]
	self.mutex.Unlock()

	result := &ToolResult{
		CallId: call.CallId,
		Name:   call.Name,
	}
	if !ok {
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
		return result
	}
	content, err := tool.Execute(ctx, call.Args)
	if err != nil {
		glog.V(1).Infof("[loop]tool %s error = %s\n", call.Name, err)
		result.Error = err.Error()
		return result
	}
	result.Content = content
	return result
}

func (self *ToolLoop) reportError(err error) {
	glog.Infof("[loop]provider error = %s\n", err)
	for _, callback := range self.errorCallbacks.Get() {
		func() {
			defer recoverCallbackPanic()
			callback(err)
		}()
	}
}

// the registry's mutating operations exposed as tools for the generating model
func SurfaceTools(registry *SurfaceRegistry) []*Tool {
	dispatch := func(message *ServerMessage) (any, error) {
		if err := registry.Dispatch(message); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	}
	return []*Tool{
		{
			Descriptor: &ToolDescriptor{
				Name:        "surfaceUpdate",
				Description: "Add or replace components on a surface.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"surfaceId":  map[string]any{"type": "string"},
						"components": map[string]any{"type": "array"},
					},
					"required": []any{"surfaceId", "components"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				update := &SurfaceUpdate{}
				if err := decodeArgs(args, update); err != nil {
					return nil, err
				}
				return dispatch(&ServerMessage{SurfaceUpdate: update})
			},
		},
		{
			Descriptor: &ToolDescriptor{
				Name:        "beginRendering",
				Description: "Declare or replace the root component of a surface.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"surfaceId": map[string]any{"type": "string"},
						"root":      map[string]any{"type": "string"},
					},
					"required": []any{"surfaceId", "root"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				begin := &BeginRendering{}
				if err := decodeArgs(args, begin); err != nil {
					return nil, err
				}
				return dispatch(&ServerMessage{BeginRendering: begin})
			},
		},
		{
			Descriptor: &ToolDescriptor{
				Name:        "dataModelUpdate",
				Description: "Write contents at a path in a surface's data model. Path defaults to the whole document.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"surfaceId": map[string]any{"type": "string"},
						"path":      map[string]any{"type": "string"},
						"contents":  map[string]any{},
					},
					"required": []any{"surfaceId", "contents"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				update := &DataModelUpdate{}
				if err := decodeArgs(args, update); err != nil {
					return nil, err
				}
				return dispatch(&ServerMessage{DataModelUpdate: update})
			},
		},
		{
			Descriptor: &ToolDescriptor{
				Name:        "surfaceDeletion",
				Description: "Remove and dispose a surface. Unknown surfaces are a no-op.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"surfaceId": map[string]any{"type": "string"},
					},
					"required": []any{"surfaceId"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				deletion := &SurfaceDeletion{}
				if err := decodeArgs(args, deletion); err != nil {
					return nil, err
				}
				return dispatch(&ServerMessage{SurfaceDeletion: deletion})
			},
		},
	}
}

func decodeArgs(args map[string]any, out any) error {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, out)
}
