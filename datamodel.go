package genui

import (
	"fmt"
	"sync"
)

// a responsive json-like document. one per surface.
// values are `map[string]any`, `[]any`, scalars, or nil.
// subscribers attach at a path and see the current value immediately,
// then every value that a related write produces.
// a field segment traverses a map and an index segment traverses a sequence.
// traversing an existing value of the wrong container kind is a structural
// conflict and fails without modifying the document.

type StructuralConflictError struct {
	Path    DataPath
	Segment DataPathSegment
	Found   any
}

func (self *StructuralConflictError) Error() string {
	return fmt.Sprintf(
		"structural conflict at %s of %s: found %T",
		self.Segment,
		self.Path,
		self.Found,
	)
}

type DataFunction func(value any)

type dataSubscription struct {
	path     DataPath
	callback DataFunction
}

type DataModel struct {
	mutex sync.Mutex
	done  bool
	root  any

	subscriptions *CallbackList[*dataSubscription]
}

func NewDataModel() *DataModel {
	return &DataModel{
		subscriptions: NewCallbackList[*dataSubscription](),
	}
}

// replaces the value at `path` with `contents`, creating missing containers on the way.
// a missing node under a field segment becomes an empty map and a missing node under
// an index segment becomes a sequence extended with nils as needed.
// on structural conflict the document is left unchanged
func (self *DataModel) Update(path DataPath, contents any) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if self.done {
		return fmt.Errorf("update: %w", ErrDisposed)
	}

	if path.IsRoot() {
		self.root = contents
	} else {
		// validate against the existing structure before mutating anything.
		// vivified containers are created empty with the expected kind,
		// so conflicts can only come from values that already exist
		if err := validateWalk(self.root, path); err != nil {
			return err
		}
		self.root = writeWalk(self.root, path.Segments(), contents)
	}

	self.notifyAll(path)
	return nil
}

// walk without vivification. missing intermediate nodes read as nil
func (self *DataModel) Read(path DataPath) (any, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if self.done {
		return nil, fmt.Errorf("read: %w", ErrDisposed)
	}
	return readValue(self.root, path), nil
}

// the callback fires synchronously with the current value, then again after
// every write whose path is related to `path`. the returned function removes
// the subscription and is safe to call more than once
func (self *DataModel) Subscribe(path DataPath, callback DataFunction) (func(), error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return nil, fmt.Errorf("subscribe: %w", ErrDisposed)
	}
	subscription := &dataSubscription{
		path:     path,
		callback: callback,
	}
	subscriptionId := self.subscriptions.Add(subscription)
	initial := readValue(self.root, path)
	self.mutex.Unlock()

	func() {
		defer recoverCallbackPanic()
		callback(initial)
	}()

	return func() {
		self.subscriptions.Remove(subscriptionId)
	}, nil
}

func (self *DataModel) Close() {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if self.done {
		return
	}
	self.done = true
	self.subscriptions = NewCallbackList[*dataSubscription]()
}

func (self *DataModel) IsClosed() bool {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.done
}

// must be called with the mutex held for a consistent read of the root.
// callbacks run outside the lock on a snapshot of the subscription list
func (self *DataModel) notifyAll(path DataPath) {
	subscriptions := self.subscriptions.Get()
	root := self.root
	self.mutex.Unlock()
	defer self.mutex.Lock()

	for _, subscription := range subscriptions {
		if subscription.path.Related(path) {
			func() {
				defer recoverCallbackPanic()
				subscription.callback(readValue(root, subscription.path))
			}()
		}
	}
}

func recoverCallbackPanic() {
	// a subscriber must not take down the fan-out
	recover()
}

func readValue(node any, path DataPath) any {
	for _, segment := range path.Segments() {
		if segment.IsIndex {
			sequence, ok := node.([]any)
			if !ok || segment.Index < 0 || len(sequence) <= segment.Index {
				return nil
			}
			node = sequence[segment.Index]
		} else {
			object, ok := node.(map[string]any)
			if !ok {
				return nil
			}
			node = object[segment.Field]
		}
	}
	return node
}

// checks every existing node on the walk for container kind conflicts.
// stops at the first missing node since everything below it will be vivified
func validateWalk(node any, path DataPath) error {
	segments := path.Segments()
	for i, segment := range segments {
		if node == nil {
			return nil
		}
		if segment.IsIndex {
			sequence, ok := node.([]any)
			if !ok {
				return &StructuralConflictError{
					Path:    path,
					Segment: segment,
					Found:   node,
				}
			}
			if len(sequence) <= segment.Index {
				return nil
			}
			if i == len(segments)-1 {
				return nil
			}
			node = sequence[segment.Index]
		} else {
			object, ok := node.(map[string]any)
			if !ok {
				return &StructuralConflictError{
					Path:    path,
					Segment: segment,
					Found:   node,
				}
			}
			if i == len(segments)-1 {
				return nil
			}
			node = object[segment.Field]
		}
	}
	return nil
}

// assumes `validateWalk` passed. returns the new value for `node`
func writeWalk(node any, segments []DataPathSegment, contents any) any {
	segment := segments[0]
	if segment.IsIndex {
		sequence, _ := node.([]any)
		for len(sequence) <= segment.Index {
			sequence = append(sequence, nil)
		}
		if len(segments) == 1 {
			sequence[segment.Index] = contents
		} else {
			sequence[segment.Index] = writeWalk(sequence[segment.Index], segments[1:], contents)
		}
		return sequence
	}
	object, ok := node.(map[string]any)
	if !ok {
		object = map[string]any{}
	}
	if len(segments) == 1 {
		object[segment.Field] = contents
	} else {
		object[segment.Field] = writeWalk(object[segment.Field], segments[1:], contents)
	}
	return object
}
