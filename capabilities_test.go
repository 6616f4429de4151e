package genui

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestBuildClientCapabilitiesInlineNone(t *testing.T) {
	catalogs := []*ComponentCatalog{
		{Id: "core", Document: map[string]any{"name": "core"}},
		{Id: "charts", Document: map[string]any{"name": "charts"}},
	}
	capabilities, err := BuildClientCapabilities(catalogs, InlineNone)
	assert.Equal(t, err, nil)
	assert.Equal(t, capabilities.SupportedCatalogIds, []string{"core", "charts"})
	assert.Equal(t, len(capabilities.InlineCatalogs), 0)

	// a catalog without an id fails before any network interaction
	catalogs = append(catalogs, &ComponentCatalog{Document: map[string]any{"name": "anon"}})
	_, err = BuildClientCapabilities(catalogs, InlineNone)
	assert.NotEqual(t, err, nil)
}

func TestBuildClientCapabilitiesInlineMissingId(t *testing.T) {
	catalogs := []*ComponentCatalog{
		{Id: "core", Document: map[string]any{"name": "core"}},
		{Document: map[string]any{"name": "anon"}},
	}
	capabilities, err := BuildClientCapabilities(catalogs, InlineMissingId)
	assert.Equal(t, err, nil)
	assert.Equal(t, capabilities.SupportedCatalogIds, []string{"core"})
	assert.Equal(t, capabilities.InlineCatalogs, []map[string]any{{"name": "anon"}})
}

func TestBuildClientCapabilitiesInlineAll(t *testing.T) {
	catalogs := []*ComponentCatalog{
		{Id: "core", Document: map[string]any{"name": "core"}},
		{Document: map[string]any{"name": "anon"}},
	}
	capabilities, err := BuildClientCapabilities(catalogs, InlineAll)
	assert.Equal(t, err, nil)
	assert.Equal(t, capabilities.SupportedCatalogIds, []string{"core"})
	assert.Equal(t, len(capabilities.InlineCatalogs), 2)
}

func TestEncodeClientCapabilities(t *testing.T) {
	capabilities, err := BuildClientCapabilities([]*ComponentCatalog{
		{Id: "core", Document: map[string]any{"name": "core"}},
	}, InlineNone)
	assert.Equal(t, err, nil)

	capabilitiesBytes, err := EncodeClientCapabilities(capabilities)
	assert.Equal(t, err, nil)

	var decoded map[string]any
	err = json.Unmarshal(capabilitiesBytes, &decoded)
	assert.Equal(t, err, nil)

	envelope, ok := decoded["v0.9"].(map[string]any)
	assert.Equal(t, ok, true)
	assert.Equal(t, envelope["supportedCatalogIds"], []any{"core"})
	_, hasInline := envelope["inlineCatalogs"]
	assert.Equal(t, hasInline, false)
}
