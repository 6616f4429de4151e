package genui

import (
	"flag"
	"testing"

	"github.com/go-playground/assert/v2"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func TestParseDataPath(t *testing.T) {
	path, err := ParseDataPath("/a/b[0]/c")
	assert.Equal(t, err, nil)
	assert.Equal(t, path.Segments(), []DataPathSegment{
		FieldSegment("a"),
		FieldSegment("b"),
		IndexSegment(0),
		FieldSegment("c"),
	})
	assert.Equal(t, path.String(), "/a/b[0]/c")

	// a token can be an index with no field
	path, err = ParseDataPath("/[2]/b")
	assert.Equal(t, err, nil)
	assert.Equal(t, path.Segments(), []DataPathSegment{
		IndexSegment(2),
		FieldSegment("b"),
	})

	// no leading separator addresses from the root too
	path, err = ParseDataPath("a/b")
	assert.Equal(t, err, nil)
	assert.Equal(t, path.Len(), 2)
}

func TestParseDataPathRoot(t *testing.T) {
	for _, pathStr := range []string{"", "/"} {
		path, err := ParseDataPath(pathStr)
		assert.Equal(t, err, nil)
		assert.Equal(t, path.IsRoot(), true)
		assert.Equal(t, path.String(), "/")
	}
}

func TestParseDataPathErrors(t *testing.T) {
	for _, pathStr := range []string{
		"/a//b",
		"/a[x]",
		"/a[-1]",
		"/a[]",
		"/a[0",
		"/a]0[",
	} {
		_, err := ParseDataPath(pathStr)
		assert.NotEqual(t, err, nil)
	}
}

func TestDataPathResolve(t *testing.T) {
	base := RequireDataPath("/items[0]")
	relative := RequireDataPath("/name")
	assert.Equal(t, base.Resolve(relative).String(), "/items[0]/name")

	assert.Equal(t, RootPath.Resolve(relative).Equal(relative), true)
	assert.Equal(t, base.Resolve(RootPath).Equal(base), true)
}

func TestDataPathRelated(t *testing.T) {
	a := RequireDataPath("/a/b")
	assert.Equal(t, a.Related(RequireDataPath("/a/b")), true)
	assert.Equal(t, a.Related(RequireDataPath("/a")), true)
	assert.Equal(t, a.Related(RequireDataPath("/a/b/c")), true)
	assert.Equal(t, a.Related(RootPath), true)
	assert.Equal(t, a.Related(RequireDataPath("/a/c")), false)
	assert.Equal(t, a.Related(RequireDataPath("/b")), false)
	assert.Equal(t, a.Related(RequireDataPath("/a[0]")), false)
}
