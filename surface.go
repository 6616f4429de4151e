package genui

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
)

// one independently addressable ui region. a surface owns one ui definition
// and one data model, and both share its lifetime exactly

type SurfaceMismatchError struct {
	SurfaceId        string
	MessageSurfaceId string
}

func (self *SurfaceMismatchError) Error() string {
	return fmt.Sprintf(
		"message for surface %q applied to surface %q",
		self.MessageSurfaceId,
		self.SurfaceId,
	)
}

// immutable snapshot. `Apply` replaces the whole value so a reader holding an
// old snapshot is never affected by an in-flight write
type UiDefinition struct {
	// component id -> component. upsert replaces the whole component
	Components map[string]*Component
	// may name a component that does not exist yet.
	// a renderer treats a missing root as "render nothing"
	RootComponentId string
}

func NewUiDefinition() *UiDefinition {
	return &UiDefinition{
		Components: map[string]*Component{},
	}
}

type DefinitionFunction func(definition *UiDefinition)

type Surface struct {
	surfaceId string

	mutex      sync.Mutex
	done       bool
	definition *UiDefinition
	model      *DataModel

	definitionCallbacks  *CallbackList[DefinitionFunction]
	interactionCallbacks *CallbackList[InteractionFunction]
}

type InteractionFunction func(event *UserActionEvent)

func NewSurface(surfaceId string) *Surface {
	return &Surface{
		surfaceId:            surfaceId,
		definition:           NewUiDefinition(),
		model:                NewDataModel(),
		definitionCallbacks:  NewCallbackList[DefinitionFunction](),
		interactionCallbacks: NewCallbackList[InteractionFunction](),
	}
}

func (self *Surface) SurfaceId() string {
	return self.surfaceId
}

func (self *Surface) Model() *DataModel {
	return self.model
}

// current snapshot of the ui definition
func (self *Surface) Definition() *UiDefinition {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.definition
}

// the single mutation entry point.
// one inbound message at a time; callers serialize
func (self *Surface) Apply(message *ServerMessage) error {
	if err := message.Validate(); err != nil {
		return err
	}
	if messageSurfaceId := message.SurfaceId(); messageSurfaceId != self.surfaceId {
		return &SurfaceMismatchError{
			SurfaceId:        self.surfaceId,
			MessageSurfaceId: messageSurfaceId,
		}
	}

	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return fmt.Errorf("apply: %w", ErrDisposed)
	}

	switch {
	case message.SurfaceUpdate != nil:
		components := maps.Clone(self.definition.Components)
		for _, component := range message.SurfaceUpdate.Components {
			components[component.Id] = component
		}
		self.definition = &UiDefinition{
			Components:      components,
			RootComponentId: self.definition.RootComponentId,
		}
	case message.BeginRendering != nil:
		// no existence check against the component map.
		// components for the root may stream in after this message
		self.definition = &UiDefinition{
			Components:      self.definition.Components,
			RootComponentId: message.BeginRendering.Root,
		}
	case message.DataModelUpdate != nil:
		self.mutex.Unlock()
		pathStr := "/"
		if message.DataModelUpdate.Path != nil {
			pathStr = *message.DataModelUpdate.Path
		}
		path, err := ParseDataPath(pathStr)
		if err != nil {
			return err
		}
		return self.model.Update(path, message.DataModelUpdate.Contents)
	case message.SurfaceDeletion != nil:
		// lifecycle ownership belongs to the registry.
		// only the registry may remove and dispose a surface
		self.mutex.Unlock()
		return fmt.Errorf("surface deletion must be dispatched through the registry")
	}

	definition := self.definition
	self.mutex.Unlock()

	for _, callback := range self.definitionCallbacks.Get() {
		func() {
			defer recoverCallbackPanic()
			callback(definition)
		}()
	}
	return nil
}

// observe structural changes, independent from the data model's own observability.
// fires after every applied structural message with the new snapshot
func (self *Surface) AddDefinitionCallback(callback DefinitionFunction) (func(), error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("add definition callback: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	callbackId := self.definitionCallbacks.Add(callback)
	return func() {
		self.definitionCallbacks.Remove(callbackId)
	}, nil
}

// the renderer reports user interactions here.
// the registry subscribes to convert them into outbound user messages
func (self *Surface) AddInteractionCallback(callback InteractionFunction) (func(), error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("add interaction callback: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	callbackId := self.interactionCallbacks.Add(callback)
	return func() {
		self.interactionCallbacks.Remove(callbackId)
	}, nil
}

func (self *Surface) ReportInteraction(event *UserActionEvent) error {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return fmt.Errorf("report interaction: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	for _, callback := range self.interactionCallbacks.Get() {
		func() {
			defer recoverCallbackPanic()
			callback(event)
		}()
	}
	return nil
}

func (self *Surface) IsClosed() bool {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.done
}

// called by the registry on removal and on teardown. idempotent
func (self *Surface) close() {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return
	}
	self.done = true
	self.mutex.Unlock()
	self.model.Close()
}
