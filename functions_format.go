package genui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// formatter builtins. all synchronous

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var dateLayouts = map[string]string{
	"short":  "1/2/06",
	"medium": "Jan 2, 2006",
	"long":   "January 2, 2006",
	"full":   "Monday, January 2, 2006",
}

func formatterFunctions() []ClientFunction {
	return []ClientFunction{
		NewSyncClientFunction(
			"formatString",
			"Substitutes {name} placeholders in the template with the other arguments.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"template": map[string]any{"type": "string"},
				},
				"required":             []any{"template"},
				"additionalProperties": true,
			},
			"string",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				template, ok := args["template"].(string)
				if !ok {
					return nil, fmt.Errorf("formatString: template must be a string")
				}
				out := template
				for name, value := range args {
					if name == "template" {
						continue
					}
					out = strings.ReplaceAll(out, "{"+name+"}", stringify(value))
				}
				return out, nil
			},
		),
		NewSyncClientFunction(
			"formatNumber",
			"Formats a number with a fixed number of decimal places.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":    map[string]any{"type": "number"},
					"decimals": map[string]any{"type": "number"},
				},
				"required": []any{"value"},
			},
			"string",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				number, ok := asNumber(args["value"])
				if !ok {
					return nil, fmt.Errorf("formatNumber: value must be a number")
				}
				decimals := -1
				if d, ok := asNumber(args["decimals"]); ok {
					decimals = int(d)
				}
				return strconv.FormatFloat(number, 'f', decimals, 64), nil
			},
		),
		NewSyncClientFunction(
			"formatCurrency",
			"Formats an amount with a currency symbol, two decimal places by default.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":    map[string]any{"type": "number"},
					"currency": map[string]any{"type": "string", "description": "ISO 4217 code, e.g. USD."},
				},
				"required": []any{"value"},
			},
			"string",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				number, ok := asNumber(args["value"])
				if !ok {
					return nil, fmt.Errorf("formatCurrency: value must be a number")
				}
				currency, _ := args["currency"].(string)
				if currency == "" {
					currency = "USD"
				}
				amount := strconv.FormatFloat(number, 'f', 2, 64)
				if symbol, ok := currencySymbols[strings.ToUpper(currency)]; ok {
					return symbol + amount, nil
				}
				return strings.ToUpper(currency) + " " + amount, nil
			},
		),
		NewSyncClientFunction(
			"formatDate",
			"Formats an ISO-8601 date string or epoch milliseconds. Styles: short, medium, long, full, or a Go layout.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":  map[string]any{"description": "ISO-8601 string or epoch milliseconds."},
					"format": map[string]any{"type": "string"},
				},
				"required": []any{"value"},
			},
			"string",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				t, err := parseDate(args["value"])
				if err != nil {
					return nil, err
				}
				layout := dateLayouts["medium"]
				if format, ok := args["format"].(string); ok && format != "" {
					if namedLayout, ok := dateLayouts[format]; ok {
						layout = namedLayout
					} else {
						layout = format
					}
				}
				return t.Format(layout), nil
			},
		),
		NewSyncClientFunction(
			"pluralize",
			"Selects a plural category message for a count. Categories: zero, one, other. {count} in the message is substituted.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"count": map[string]any{"type": "number"},
					"zero":  map[string]any{"type": "string"},
					"one":   map[string]any{"type": "string"},
					"other": map[string]any{"type": "string"},
				},
				"required": []any{"count", "other"},
			},
			"string",
			func(args map[string]any, fctx *FunctionContext) (any, error) {
				count, ok := asNumber(args["count"])
				if !ok {
					return nil, fmt.Errorf("pluralize: count must be a number")
				}
				message, _ := args["other"].(string)
				if count == 0 {
					if zero, ok := args["zero"].(string); ok {
						message = zero
					}
				} else if count == 1 {
					if one, ok := args["one"].(string); ok {
						message = one
					}
				}
				return strings.ReplaceAll(message, "{count}", stringify(count)), nil
			},
		),
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("formatDate: cannot parse date %q", v)
	default:
		if millis, ok := asNumber(value); ok {
			return time.UnixMilli(int64(millis)).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("formatDate: value must be a date string or epoch milliseconds")
	}
}
