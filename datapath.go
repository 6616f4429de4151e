package genui

import (
	"fmt"
	"strconv"
	"strings"
)

// a data path addresses one location inside a surface's data document
// string syntax is `/seg1/seg2[n]/seg3`. `/` and the empty string address the document root.
// a trailing `[n]` on a token parses as an index segment after the field segment of the
// same token, so `a[0]` is the field `a` followed by index `0`

type DataPathSegment struct {
	Field   string
	Index   int
	IsIndex bool
}

func FieldSegment(field string) DataPathSegment {
	return DataPathSegment{
		Field: field,
	}
}

func IndexSegment(index int) DataPathSegment {
	return DataPathSegment{
		Index:   index,
		IsIndex: true,
	}
}

func (self DataPathSegment) String() string {
	if self.IsIndex {
		return fmt.Sprintf("[%d]", self.Index)
	}
	return self.Field
}

// immutable value. share freely, never mutate the segments
type DataPath struct {
	segments []DataPathSegment
}

var RootPath = DataPath{}

func NewDataPath(segments ...DataPathSegment) DataPath {
	return DataPath{
		segments: segments,
	}
}

func ParseDataPath(pathStr string) (DataPath, error) {
	pathStr = strings.TrimSpace(pathStr)
	if pathStr == "" || pathStr == "/" {
		return RootPath, nil
	}
	segments := []DataPathSegment{}
	tokens := strings.Split(pathStr, "/")
	if tokens[0] == "" {
		// leading separator addresses from the root
		tokens = tokens[1:]
	}
	for _, token := range tokens {
		if token == "" {
			return DataPath{}, fmt.Errorf("empty segment in path %q", pathStr)
		}
		field := token
		indexStr := ""
		if strings.HasSuffix(token, "]") {
			open := strings.LastIndex(token, "[")
			if open < 0 {
				return DataPath{}, fmt.Errorf("unmatched ] in path segment %q", token)
			}
			field = token[0:open]
			indexStr = token[open+1 : len(token)-1]
		}
		if field != "" {
			if strings.ContainsAny(field, "[]") {
				return DataPath{}, fmt.Errorf("malformed path segment %q", token)
			}
			segments = append(segments, FieldSegment(field))
		}
		if indexStr != "" || strings.HasSuffix(token, "[]") {
			index, err := strconv.Atoi(indexStr)
			if err != nil {
				return DataPath{}, fmt.Errorf("malformed index in path segment %q", token)
			}
			if index < 0 {
				return DataPath{}, fmt.Errorf("negative index in path segment %q", token)
			}
			segments = append(segments, IndexSegment(index))
		}
	}
	return NewDataPath(segments...), nil
}

func RequireDataPath(pathStr string) DataPath {
	path, err := ParseDataPath(pathStr)
	if err != nil {
		panic(err)
	}
	return path
}

func (self DataPath) IsRoot() bool {
	return len(self.segments) == 0
}

func (self DataPath) Len() int {
	return len(self.segments)
}

func (self DataPath) Segments() []DataPathSegment {
	return self.segments[0:len(self.segments):len(self.segments)]
}

// concatenation. resolves `relative` against this path as base
func (self DataPath) Resolve(relative DataPath) DataPath {
	if self.IsRoot() {
		return relative
	}
	if relative.IsRoot() {
		return self
	}
	segments := make([]DataPathSegment, 0, len(self.segments)+len(relative.segments))
	segments = append(segments, self.segments...)
	segments = append(segments, relative.segments...)
	return NewDataPath(segments...)
}

func (self DataPath) String() string {
	if self.IsRoot() {
		return "/"
	}
	var b strings.Builder
	for _, segment := range self.segments {
		if segment.IsIndex {
			fmt.Fprintf(&b, "[%d]", segment.Index)
		} else {
			b.WriteByte('/')
			b.WriteString(segment.Field)
		}
	}
	return b.String()
}

func (self DataPath) Equal(other DataPath) bool {
	if len(self.segments) != len(other.segments) {
		return false
	}
	for i := range self.segments {
		if self.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// true when one path is a prefix of the other (either direction), including equality.
// a write at one path affects subscriptions at every related path
func (self DataPath) Related(other DataPath) bool {
	n := len(self.segments)
	if len(other.segments) < n {
		n = len(other.segments)
	}
	for i := 0; i < n; i += 1 {
		if self.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
