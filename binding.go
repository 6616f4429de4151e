package genui

import (
	"encoding/json"
	"fmt"
	"sync"
)

// a binding is a declarative value descriptor inside a component's property
// bundle. it is one of:
//   literal        any json value without a `path` or `function` key
//   path reference {"path": "/a/b"}, resolved relative to the binding context
//   function call  {"function": "name", "args": {...}}, args are bindings again

type Binding struct {
	Literal  any
	Path     string
	IsPath   bool
	Function string
	Args     map[string]*Binding
}

func LiteralBinding(value any) *Binding {
	return &Binding{
		Literal: value,
	}
}

func PathBinding(path string) *Binding {
	return &Binding{
		Path:   path,
		IsPath: true,
	}
}

func FunctionBinding(function string, args map[string]*Binding) *Binding {
	if args == nil {
		args = map[string]*Binding{}
	}
	return &Binding{
		Function: function,
		Args:     args,
	}
}

func (self *Binding) UnmarshalJSON(src []byte) error {
	var raw any
	if err := json.Unmarshal(src, &raw); err != nil {
		return err
	}
	object, ok := raw.(map[string]any)
	if !ok {
		*self = Binding{Literal: raw}
		return nil
	}
	if pathValue, ok := object["path"]; ok && len(object) == 1 {
		pathStr, ok := pathValue.(string)
		if !ok {
			return fmt.Errorf("binding path must be a string, found %T", pathValue)
		}
		*self = Binding{Path: pathStr, IsPath: true}
		return nil
	}
	if functionValue, ok := object["function"]; ok {
		functionName, ok := functionValue.(string)
		if !ok {
			return fmt.Errorf("binding function must be a string, found %T", functionValue)
		}
		args := map[string]*Binding{}
		if rawArgs, ok := object["args"]; ok {
			argsObject, ok := rawArgs.(map[string]any)
			if !ok {
				return fmt.Errorf("binding args must be an object, found %T", rawArgs)
			}
			for name, rawArg := range argsObject {
				argBytes, err := json.Marshal(rawArg)
				if err != nil {
					return err
				}
				arg := &Binding{}
				if err := json.Unmarshal(argBytes, arg); err != nil {
					return err
				}
				args[name] = arg
			}
		}
		*self = Binding{Function: functionName, Args: args}
		return nil
	}
	*self = Binding{Literal: raw}
	return nil
}

func (self *Binding) MarshalJSON() ([]byte, error) {
	switch {
	case self.IsPath:
		return json.Marshal(map[string]any{
			"path": self.Path,
		})
	case self.Function != "":
		return json.Marshal(map[string]any{
			"function": self.Function,
			"args":     self.Args,
		})
	default:
		return json.Marshal(self.Literal)
	}
}

// each resolved value is delivered with the error slot of the emission,
// so one failing binding never crashes the surface or sibling bindings
type ResolveFunction func(value any, err error)

// binding resolution context: the data model, a current path that relative
// references resolve against, and the function registry
type ExecutionContext struct {
	model     *DataModel
	current   DataPath
	functions *ClientFunctionRegistry
	openUrl   func(url string)
}

func NewExecutionContext(model *DataModel, functions *ClientFunctionRegistry) *ExecutionContext {
	return &ExecutionContext{
		model:     model,
		functions: functions,
	}
}

// hook for the side effecting `openUrl` builtin
func (self *ExecutionContext) SetOpenUrlCallback(openUrl func(url string)) {
	self.openUrl = openUrl
}

func (self *ExecutionContext) CurrentPath() DataPath {
	return self.current
}

// a child context for descendant components inside repeated structures.
// the child's current path is this context's current path plus `relative`
func (self *ExecutionContext) Nested(relative DataPath) *ExecutionContext {
	return &ExecutionContext{
		model:     self.model,
		current:   self.current.Resolve(relative),
		functions: self.functions,
		openUrl:   self.openUrl,
	}
}

// resolves `binding` into a live value stream delivered through `callback`.
// the returned cancel tears down every path subscription and function
// invocation the resolution created, recursively
func (self *ExecutionContext) Resolve(binding *Binding, callback ResolveFunction) func() {
	switch {
	case binding == nil:
		callback(nil, nil)
		return func() {}
	case binding.IsPath:
		return self.resolvePath(binding, callback)
	case binding.Function != "":
		return self.resolveFunction(binding, callback)
	default:
		// a literal emits once and never changes
		callback(binding.Literal, nil)
		return func() {}
	}
}

func (self *ExecutionContext) resolvePath(binding *Binding, callback ResolveFunction) func() {
	relative, err := ParseDataPath(binding.Path)
	if err != nil {
		callback(nil, err)
		return func() {}
	}
	absolute := self.current.Resolve(relative)
	cancel, err := self.model.Subscribe(absolute, func(value any) {
		callback(value, nil)
	})
	if err != nil {
		callback(nil, err)
		return func() {}
	}
	return cancel
}

// resolve every argument in parallel. whenever any argument emits a new
// value, cancel the previous invocation and re-invoke the function with the
// fresh argument snapshot. the function never watches its own arguments
func (self *ExecutionContext) resolveFunction(binding *Binding, callback ResolveFunction) func() {
	function := self.functions.Get(binding.Function)
	if function == nil {
		callback(nil, fmt.Errorf("unknown client function %q", binding.Function))
		return func() {}
	}

	invocation := &functionInvocation{
		function: function,
		fctx: &FunctionContext{
			Model:   self.model,
			Path:    self.current,
			OpenUrl: self.openUrl,
		},
		callback: callback,
		pending:  len(binding.Args),
		seen:     map[string]bool{},
		args:     map[string]any{},
		argErrs:  map[string]error{},
	}

	argCancels := []func(){}
	for name, arg := range binding.Args {
		argName := name
		cancel := self.Resolve(arg, func(value any, err error) {
			invocation.setArg(argName, value, err)
		})
		argCancels = append(argCancels, cancel)
	}
	if len(binding.Args) == 0 {
		invocation.invoke()
	}

	return func() {
		for _, cancel := range argCancels {
			cancel()
		}
		invocation.cancel()
	}
}

type functionInvocation struct {
	function ClientFunction
	fctx     *FunctionContext
	callback ResolveFunction

	mutex        sync.Mutex
	done         bool
	pending      int
	seen         map[string]bool
	args         map[string]any
	argErrs      map[string]error
	cancelActive func()
}

func (self *functionInvocation) setArg(name string, value any, err error) {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return
	}
	if !self.seen[name] {
		self.seen[name] = true
		self.pending -= 1
	}
	if err != nil {
		// an argument failure fails this binding without invoking the function.
		// the failure latches until the same argument emits a good value, so a
		// sibling emission cannot re-invoke with a stale slot
		self.argErrs[name] = err
		self.mutex.Unlock()
		self.callback(nil, err)
		return
	}
	delete(self.argErrs, name)
	self.args[name] = value
	ready := self.pending <= 0 && len(self.argErrs) == 0
	self.mutex.Unlock()

	if ready {
		self.invoke()
	}
}

func (self *functionInvocation) invoke() {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return
	}
	cancelPrevious := self.cancelActive
	self.cancelActive = nil
	argsSnapshot := map[string]any{}
	for name, value := range self.args {
		argsSnapshot[name] = value
	}
	self.mutex.Unlock()

	if cancelPrevious != nil {
		cancelPrevious()
	}

	cancelActive := self.function.Execute(argsSnapshot, self.fctx, func(value any, err error) {
		self.mutex.Lock()
		done := self.done
		self.mutex.Unlock()
		if !done {
			self.callback(value, err)
		}
	})

	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		if cancelActive != nil {
			cancelActive()
		}
		return
	}
	self.cancelActive = cancelActive
	self.mutex.Unlock()
}

func (self *functionInvocation) cancel() {
	self.mutex.Lock()
	if self.done {
		self.mutex.Unlock()
		return
	}
	self.done = true
	cancelActive := self.cancelActive
	self.cancelActive = nil
	self.mutex.Unlock()
	if cancelActive != nil {
		cancelActive()
	}
}

// truthiness for condition bindings:
// nil, false, empty string, empty collection, and zero are false.
// everything else is true
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) != 0
	case map[string]any:
		return len(v) != 0
	default:
		return true
	}
}

// a condition stream: `Resolve` coerced to the truthiness rule.
// resolution errors coerce to false
func (self *ExecutionContext) ResolveBool(binding *Binding, callback func(value bool)) func() {
	return self.Resolve(binding, func(value any, err error) {
		if err != nil {
			callback(false)
			return
		}
		callback(Truthy(value))
	})
}
