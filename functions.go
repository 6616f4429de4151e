package genui

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/exp/maps"
)

// client functions are named, schema described computations invocable from
// bindings. the schema doubles as the tool-facing description handed to a
// generating model. a function emits one or more values over its lifetime
// through the emit callback and returns a cancel for any live watchers

type FunctionContext struct {
	Model *DataModel
	// current path of the binding context the call was resolved in
	Path    DataPath
	OpenUrl func(url string)
}

type ClientFunction interface {
	Name() string
	Description() string
	// json-schema shaped argument description
	Schema() map[string]any
	// one of: string number boolean array object any void
	ReturnType() string
	Execute(args map[string]any, fctx *FunctionContext, emit ResolveFunction) func()
}

type ClientFunctionRegistry struct {
	mutex     sync.Mutex
	functions map[string]ClientFunction
}

func NewClientFunctionRegistry() *ClientFunctionRegistry {
	return &ClientFunctionRegistry{
		functions: map[string]ClientFunction{},
	}
}

// a registry preloaded with the builtin combinators, validators, and formatters
func NewClientFunctionRegistryWithDefaults() *ClientFunctionRegistry {
	registry := NewClientFunctionRegistry()
	for _, function := range builtinFunctions() {
		if err := registry.Register(function); err != nil {
			panic(err)
		}
	}
	return registry
}

func (self *ClientFunctionRegistry) Register(function ClientFunction) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if _, ok := self.functions[function.Name()]; ok {
		return fmt.Errorf("client function %q already registered", function.Name())
	}
	self.functions[function.Name()] = function
	return nil
}

func (self *ClientFunctionRegistry) Get(name string) ClientFunction {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.functions[name]
}

func (self *ClientFunctionRegistry) Names() []string {
	self.mutex.Lock()
	names := maps.Keys(self.functions)
	self.mutex.Unlock()
	sort.Strings(names)
	return names
}

func (self *ClientFunctionRegistry) Functions() []ClientFunction {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	functions := maps.Values(self.functions)
	sort.Slice(functions, func(i int, j int) bool {
		return functions[i].Name() < functions[j].Name()
	})
	return functions
}

// wraps a single computed value into a single emission stream.
// a panic in the compute function becomes a stream error rather than
// propagating, so the resolver can surface it per binding
type syncFunction struct {
	name        string
	description string
	schema      map[string]any
	returnType  string
	compute     func(args map[string]any, fctx *FunctionContext) (any, error)
}

func NewSyncClientFunction(
	name string,
	description string,
	schema map[string]any,
	returnType string,
	compute func(args map[string]any, fctx *FunctionContext) (any, error),
) ClientFunction {
	return &syncFunction{
		name:        name,
		description: description,
		schema:      schema,
		returnType:  returnType,
		compute:     compute,
	}
}

func (self *syncFunction) Name() string {
	return self.name
}

func (self *syncFunction) Description() string {
	return self.description
}

func (self *syncFunction) Schema() map[string]any {
	return self.schema
}

func (self *syncFunction) ReturnType() string {
	return self.returnType
}

func (self *syncFunction) Execute(args map[string]any, fctx *FunctionContext, emit ResolveFunction) func() {
	var value any
	var err error
	HandleError(
		func() {
			value, err = self.compute(args, fctx)
		},
		func(r error) {
			err = r
		},
	)
	emit(value, err)
	return func() {}
}

// truthiness for the boolean combinators. this is a narrower rule than
// `Truthy`: nil is false and everything that is not explicitly boolean is true
func combinatorTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// accepts a list or a single value
func valuesList(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	default:
		return []any{v}
	}
}

func valuesSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"values": map[string]any{
				"description": description,
			},
		},
		"required": []any{"values"},
	}
}

func builtinFunctions() []ClientFunction {
	functions := []ClientFunction{
		NewSyncClientFunction(
			"and",
			"True when every value is truthy. An empty list is false.",
			valuesSchema("A list of values, or a single value."),
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				values := valuesList(args["values"])
				if len(values) == 0 {
					return false, nil
				}
				for _, value := range values {
					if !combinatorTruthy(value) {
						return false, nil
					}
				}
				return true, nil
			},
		),
		NewSyncClientFunction(
			"or",
			"True when at least one value is truthy. An empty list is false.",
			valuesSchema("A list of values, or a single value."),
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				for _, value := range valuesList(args["values"]) {
					if combinatorTruthy(value) {
						return true, nil
					}
				}
				return false, nil
			},
		),
		NewSyncClientFunction(
			"not",
			"Negates the truthiness of the value.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{
						"description": "The value to negate.",
					},
				},
				"required": []any{"value"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				return !combinatorTruthy(args["value"]), nil
			},
		),
		NewSyncClientFunction(
			"required",
			"True when the value is present and not an empty string.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{
						"description": "The value to check.",
					},
				},
				"required": []any{"value"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				switch v := args["value"].(type) {
				case nil:
					return false, nil
				case string:
					return v != "", nil
				default:
					return true, nil
				}
			},
		),
		NewSyncClientFunction(
			"regex",
			"True when the string value matches the pattern.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":   map[string]any{"type": "string"},
					"pattern": map[string]any{"type": "string"},
				},
				"required": []any{"value", "pattern"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				value, _ := args["value"].(string)
				pattern, ok := args["pattern"].(string)
				if !ok {
					return nil, fmt.Errorf("regex: pattern must be a string")
				}
				matched, err := regexp.MatchString(pattern, value)
				if err != nil {
					return nil, err
				}
				return matched, nil
			},
		),
		NewSyncClientFunction(
			"length",
			"True when the string or list length is within min and max, inclusive.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{"description": "A string or list."},
					"min":   map[string]any{"type": "number"},
					"max":   map[string]any{"type": "number"},
				},
				"required": []any{"value"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				var length int
				switch v := args["value"].(type) {
				case nil:
					length = 0
				case string:
					length = len([]rune(v))
				case []any:
					length = len(v)
				default:
					return nil, fmt.Errorf("length: value must be a string or list, found %T", v)
				}
				if min, ok := asNumber(args["min"]); ok && float64(length) < min {
					return false, nil
				}
				if max, ok := asNumber(args["max"]); ok && max < float64(length) {
					return false, nil
				}
				return true, nil
			},
		),
		NewSyncClientFunction(
			"numeric",
			"True when the value is a number within min and max, inclusive.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{"description": "A number, or a string holding one."},
					"min":   map[string]any{"type": "number"},
					"max":   map[string]any{"type": "number"},
				},
				"required": []any{"value"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				number, ok := asNumber(args["value"])
				if !ok {
					return false, nil
				}
				if min, ok := asNumber(args["min"]); ok && number < min {
					return false, nil
				}
				if max, ok := asNumber(args["max"]); ok && max < number {
					return false, nil
				}
				return true, nil
			},
		),
		NewSyncClientFunction(
			"email",
			"True when the value looks like an email address.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{"type": "string"},
				},
				"required": []any{"value"},
			},
			"boolean",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				value, ok := args["value"].(string)
				if !ok {
					return false, nil
				}
				return emailRegex.MatchString(value), nil
			},
		),
		NewSyncClientFunction(
			"openUrl",
			"Opens a url on the client. Fire and forget.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string"},
				},
				"required": []any{"url"},
			},
			"void",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				url, ok := args["url"].(string)
				if !ok {
					return nil, fmt.Errorf("openUrl: url must be a string")
				}
				if fctx != nil && fctx.OpenUrl != nil {
					fctx.OpenUrl(url)
				}
				return nil, nil
			},
		),
	}
	functions = append(functions, formatterFunctions()...)
	return functions
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		number, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return number, true
	default:
		return 0, false
	}
}
