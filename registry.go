package genui

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/golang/glog"
)

// the registry owns every live surface for one conversation and is the only
// holder of cross-surface mutable state. construct one per conversation and
// close it when the conversation ends; no ambient singleton

type SurfaceLifecycleEventKind string

const (
	SurfaceAdded   SurfaceLifecycleEventKind = "added"
	SurfaceRemoved SurfaceLifecycleEventKind = "removed"
)

type SurfaceLifecycleEvent struct {
	Kind      SurfaceLifecycleEventKind
	SurfaceId string
	Surface   *Surface
}

type LifecycleFunction func(event *SurfaceLifecycleEvent)

// outbound user messages, already enveloped for the wire
type UserMessageFunction func(message *ClientMessage)

type SurfaceRegistry struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId Id

	mutex    sync.Mutex
	done     bool
	surfaces map[string]*Surface

	lifecycleCallbacks   *CallbackList[LifecycleFunction]
	userMessageCallbacks *CallbackList[UserMessageFunction]
}

func NewSurfaceRegistry(ctx context.Context) *SurfaceRegistry {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &SurfaceRegistry{
		ctx:                  cancelCtx,
		cancel:               cancel,
		instanceId:           NewId(),
		surfaces:             map[string]*Surface{},
		lifecycleCallbacks:   NewCallbackList[LifecycleFunction](),
		userMessageCallbacks: NewCallbackList[UserMessageFunction](),
	}
}

func (self *SurfaceRegistry) InstanceId() Id {
	return self.instanceId
}

// returns the existing surface or creates one lazily.
// creation emits exactly one `SurfaceAdded` event before any other signal
// for that surface
func (self *SurfaceRegistry) GetOrCreate(surfaceId string) (*Surface, error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("get or create: %w", ErrDisposed)
	}
	if surface, ok := self.surfaces[surfaceId]; ok {
		self.mutex.Unlock()
		return surface, nil
	}
	surface := NewSurface(surfaceId)
	surface.AddInteractionCallback(func(event *UserActionEvent) {
		// best effort. an event against a torn down registry is dropped
		if err := self.HandleInteraction(event); err != nil {
			glog.V(1).Infof("[reg]drop interaction %s = %s\n", surfaceId, err)
		}
	})
	self.surfaces[surfaceId] = surface
	self.mutex.Unlock()

	glog.V(2).Infof("[reg]add surface %s\n", surfaceId)
	self.emitLifecycle(&SurfaceLifecycleEvent{
		Kind:      SurfaceAdded,
		SurfaceId: surfaceId,
		Surface:   surface,
	})
	return surface, nil
}

func (self *SurfaceRegistry) Get(surfaceId string) *Surface {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.surfaces[surfaceId]
}

func (self *SurfaceRegistry) SurfaceIds() []string {
	self.mutex.Lock()
	surfaceIds := maps.Keys(self.surfaces)
	self.mutex.Unlock()
	sort.Strings(surfaceIds)
	return surfaceIds
}

// routes a message to its surface by surfaceId.
// deletion removes and disposes; deleting an unknown surface is a no-op
func (self *SurfaceRegistry) Dispatch(message *ServerMessage) error {
	if err := message.Validate(); err != nil {
		return err
	}

	if message.SurfaceDeletion != nil {
		return self.delete(message.SurfaceDeletion.SurfaceId)
	}

	surface, err := self.GetOrCreate(message.SurfaceId())
	if err != nil {
		return err
	}
	return surface.Apply(message)
}

func (self *SurfaceRegistry) delete(surfaceId string) error {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return fmt.Errorf("delete: %w", ErrDisposed)
	}
	surface, ok := self.surfaces[surfaceId]
	if !ok {
		self.mutex.Unlock()
		return nil
	}
	delete(self.surfaces, surfaceId)
	self.mutex.Unlock()

	glog.V(2).Infof("[reg]remove surface %s\n", surfaceId)
	self.emitLifecycle(&SurfaceLifecycleEvent{
		Kind:      SurfaceRemoved,
		SurfaceId: surfaceId,
		Surface:   surface,
	})
	surface.close()
	return nil
}

// accepts user action events only. other event kinds are ignored
func (self *SurfaceRegistry) HandleInteraction(event any) error {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return fmt.Errorf("handle interaction: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	userActionEvent, ok := event.(*UserActionEvent)
	if !ok {
		return nil
	}

	message := NewUserActionMessage(userActionEvent)
	for _, callback := range self.userMessageCallbacks.Get() {
		func() {
			defer recoverCallbackPanic()
			callback(message)
		}()
	}
	return nil
}

// hot multicast. a late subscriber only sees events emitted after it subscribed
func (self *SurfaceRegistry) AddLifecycleCallback(callback LifecycleFunction) (func(), error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("add lifecycle callback: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	callbackId := self.lifecycleCallbacks.Add(callback)
	return func() {
		self.lifecycleCallbacks.Remove(callbackId)
	}, nil
}

// hot multicast of outbound user messages
func (self *SurfaceRegistry) AddUserMessageCallback(callback UserMessageFunction) (func(), error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("add user message callback: %w", ErrDisposed)
	}
	self.mutex.Unlock()

	callbackId := self.userMessageCallbacks.Add(callback)
	return func() {
		self.userMessageCallbacks.Remove(callbackId)
	}, nil
}

func (self *SurfaceRegistry) emitLifecycle(event *SurfaceLifecycleEvent) {
	for _, callback := range self.lifecycleCallbacks.Get() {
		func() {
			defer recoverCallbackPanic()
			callback(event)
		}()
	}
}

func (self *SurfaceRegistry) IsClosed() bool {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.done
}

// disposes every live surface and detaches all subscribers. idempotent.
// mutating calls after close fail with a disposed error
func (self *SurfaceRegistry) Close() {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return
	}
	self.done = true
	surfaces := maps.Values(self.surfaces)
	self.surfaces = map[string]*Surface{}
	// detach subscribers under the mutex so a concurrent add never sees a
	// half-swapped list
	self.lifecycleCallbacks = NewCallbackList[LifecycleFunction]()
	self.userMessageCallbacks = NewCallbackList[UserMessageFunction]()
	self.mutex.Unlock()

	for _, surface := range surfaces {
		surface.close()
	}
	self.cancel()
}
