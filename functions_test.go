package genui

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func callSync(t *testing.T, name string, args map[string]any) (any, error) {
	registry := NewClientFunctionRegistryWithDefaults()
	function := registry.Get(name)
	assert.NotEqual(t, function, nil)

	var value any
	var err error
	cancel := function.Execute(args, &FunctionContext{}, func(v any, e error) {
		value = v
		err = e
	})
	cancel()
	return value, err
}

func TestAnd(t *testing.T) {
	value, err := callSync(t, "and", map[string]any{"values": []any{true, true}})
	assert.Equal(t, err, nil)
	assert.Equal(t, value, true)

	value, _ = callSync(t, "and", map[string]any{"values": []any{true, false}})
	assert.Equal(t, value, false)

	// nil is false, everything not explicitly boolean is true
	value, _ = callSync(t, "and", map[string]any{"values": []any{"x", float64(0)}})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "and", map[string]any{"values": []any{"x", nil}})
	assert.Equal(t, value, false)

	// single value accepted
	value, _ = callSync(t, "and", map[string]any{"values": true})
	assert.Equal(t, value, true)

	// the empty list case is defined explicitly: no values, no truth
	value, _ = callSync(t, "and", map[string]any{"values": []any{}})
	assert.Equal(t, value, false)
}

func TestOr(t *testing.T) {
	value, _ := callSync(t, "or", map[string]any{"values": []any{false, true}})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "or", map[string]any{"values": []any{false, nil}})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "or", map[string]any{"values": []any{nil, "x"}})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "or", map[string]any{"values": []any{}})
	assert.Equal(t, value, false)
}

func TestNot(t *testing.T) {
	value, _ := callSync(t, "not", map[string]any{"value": true})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "not", map[string]any{"value": nil})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "not", map[string]any{"value": "anything"})
	assert.Equal(t, value, false)
}

func TestRequired(t *testing.T) {
	value, _ := callSync(t, "required", map[string]any{"value": "x"})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "required", map[string]any{"value": ""})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "required", map[string]any{"value": nil})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "required", map[string]any{"value": float64(0)})
	assert.Equal(t, value, true)
}

func TestRegex(t *testing.T) {
	value, err := callSync(t, "regex", map[string]any{"value": "abc123", "pattern": `^[a-z]+\d+$`})
	assert.Equal(t, err, nil)
	assert.Equal(t, value, true)

	value, _ = callSync(t, "regex", map[string]any{"value": "123", "pattern": `^[a-z]+$`})
	assert.Equal(t, value, false)

	_, err = callSync(t, "regex", map[string]any{"value": "x", "pattern": `[`})
	assert.NotEqual(t, err, nil)
}

func TestLength(t *testing.T) {
	value, _ := callSync(t, "length", map[string]any{"value": "abc", "min": float64(2), "max": float64(4)})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "length", map[string]any{"value": "a", "min": float64(2)})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "length", map[string]any{"value": []any{1, 2, 3}, "max": float64(2)})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "length", map[string]any{"value": nil, "max": float64(2)})
	assert.Equal(t, value, true)
}

func TestNumeric(t *testing.T) {
	value, _ := callSync(t, "numeric", map[string]any{"value": float64(5), "min": float64(1), "max": float64(10)})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "numeric", map[string]any{"value": "5.5"})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "numeric", map[string]any{"value": "abc"})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "numeric", map[string]any{"value": float64(11), "max": float64(10)})
	assert.Equal(t, value, false)
}

func TestEmail(t *testing.T) {
	value, _ := callSync(t, "email", map[string]any{"value": "ada@example.com"})
	assert.Equal(t, value, true)

	value, _ = callSync(t, "email", map[string]any{"value": "not an email"})
	assert.Equal(t, value, false)

	value, _ = callSync(t, "email", map[string]any{"value": nil})
	assert.Equal(t, value, false)
}

func TestFormatString(t *testing.T) {
	value, err := callSync(t, "formatString", map[string]any{
		"template": "{greeting}, {name}!",
		"greeting": "Hello",
		"name":     "Ada",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, value, "Hello, Ada!")

	value, _ = callSync(t, "formatString", map[string]any{
		"template": "{n} items",
		"n":        float64(3),
	})
	assert.Equal(t, value, "3 items")
}

func TestFormatNumber(t *testing.T) {
	value, _ := callSync(t, "formatNumber", map[string]any{"value": float64(3.14159), "decimals": float64(2)})
	assert.Equal(t, value, "3.14")

	value, _ = callSync(t, "formatNumber", map[string]any{"value": float64(2)})
	assert.Equal(t, value, "2")
}

func TestFormatCurrency(t *testing.T) {
	value, _ := callSync(t, "formatCurrency", map[string]any{"value": float64(12.5), "currency": "USD"})
	assert.Equal(t, value, "$12.50")

	value, _ = callSync(t, "formatCurrency", map[string]any{"value": float64(9), "currency": "CHF"})
	assert.Equal(t, value, "CHF 9.00")

	value, _ = callSync(t, "formatCurrency", map[string]any{"value": float64(1)})
	assert.Equal(t, value, "$1.00")
}

func TestFormatDate(t *testing.T) {
	value, err := callSync(t, "formatDate", map[string]any{"value": "2024-05-01T12:30:00Z"})
	assert.Equal(t, err, nil)
	assert.Equal(t, value, "May 1, 2024")

	value, _ = callSync(t, "formatDate", map[string]any{"value": "2024-05-01", "format": "long"})
	assert.Equal(t, value, "May 1, 2024")

	value, _ = callSync(t, "formatDate", map[string]any{"value": "2024-05-01", "format": "short"})
	assert.Equal(t, value, "5/1/24")

	_, err = callSync(t, "formatDate", map[string]any{"value": "not a date"})
	assert.NotEqual(t, err, nil)
}

func TestPluralize(t *testing.T) {
	args := func(count float64) map[string]any {
		return map[string]any{
			"count": count,
			"zero":  "no items",
			"one":   "one item",
			"other": "{count} items",
		}
	}

	value, _ := callSync(t, "pluralize", args(0))
	assert.Equal(t, value, "no items")

	value, _ = callSync(t, "pluralize", args(1))
	assert.Equal(t, value, "one item")

	value, _ = callSync(t, "pluralize", args(5))
	assert.Equal(t, value, "5 items")

	// zero and one fall back to other when absent
	value, _ = callSync(t, "pluralize", map[string]any{"count": float64(0), "other": "{count} items"})
	assert.Equal(t, value, "0 items")
}

func TestRegistryDuplicate(t *testing.T) {
	registry := NewClientFunctionRegistryWithDefaults()
	err := registry.Register(NewSyncClientFunction(
		"and", "", map[string]any{}, "boolean",
		func(args map[string]any, fctx *FunctionContext) (any, error) {
			return nil, nil
		},
	))
	assert.NotEqual(t, err, nil)
}

func TestRegistryNames(t *testing.T) {
	registry := NewClientFunctionRegistryWithDefaults()
	names := registry.Names()
	assert.Equal(t, len(names), len(registry.Functions()))
	for _, name := range []string{
		"and", "or", "not",
		"required", "regex", "length", "numeric", "email",
		"formatString", "formatNumber", "formatCurrency", "formatDate", "pluralize",
		"openUrl",
	} {
		assert.NotEqual(t, registry.Get(name), nil)
	}
}
