package genui

import (
	"encoding/json"
	"fmt"
)

// client capability advertisement: the client tells the agent which component
// catalogs it understands. versioned envelope {"v0.9": {...}}

const CapabilitiesVersion = "v0.9"

type ComponentCatalog struct {
	// optional. a catalog without an id can only be advertised inline
	Id string
	// the full catalog document
	Document map[string]any
}

type CatalogInlinePolicy int

const (
	// advertise ids only. error when any catalog lacks an id
	InlineNone CatalogInlinePolicy = iota
	// inline only catalogs lacking an id
	InlineMissingId
	// inline every catalog regardless of id
	InlineAll
)

type ClientCapabilities struct {
	SupportedCatalogIds []string         `json:"supportedCatalogIds"`
	InlineCatalogs      []map[string]any `json:"inlineCatalogs,omitempty"`
}

// fails before any network interaction when the policy requires ids and a
// catalog lacks one
func BuildClientCapabilities(catalogs []*ComponentCatalog, policy CatalogInlinePolicy) (*ClientCapabilities, error) {
	capabilities := &ClientCapabilities{
		SupportedCatalogIds: []string{},
	}
	for _, catalog := range catalogs {
		switch policy {
		case InlineNone:
			if catalog.Id == "" {
				return nil, fmt.Errorf("catalog has no id and the inline policy forbids inlining")
			}
			capabilities.SupportedCatalogIds = append(capabilities.SupportedCatalogIds, catalog.Id)
		case InlineMissingId:
			if catalog.Id == "" {
				capabilities.InlineCatalogs = append(capabilities.InlineCatalogs, catalog.Document)
			} else {
				capabilities.SupportedCatalogIds = append(capabilities.SupportedCatalogIds, catalog.Id)
			}
		case InlineAll:
			if catalog.Id != "" {
				capabilities.SupportedCatalogIds = append(capabilities.SupportedCatalogIds, catalog.Id)
			}
			capabilities.InlineCatalogs = append(capabilities.InlineCatalogs, catalog.Document)
		default:
			return nil, fmt.Errorf("unknown inline policy %d", policy)
		}
	}
	return capabilities, nil
}

func EncodeClientCapabilities(capabilities *ClientCapabilities) ([]byte, error) {
	return json.Marshal(map[string]any{
		CapabilitiesVersion: capabilities,
	})
}
