package genui

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestIdOrder(t *testing.T) {
	// ulids are ordered by create time.
	// ids from the same source can be ordered
	a := NewId()
	for i := 0; i < 1024; i++ {
		b := NewId()
		assert.Equal(t, a.LessThan(b), true)
		assert.Equal(t, b.LessThan(a), false)
		assert.Equal(t, b == a, false)
		a = b
	}
}

func TestIdJsonCodec(t *testing.T) {
	type Test struct {
		A Id  `json:"a,omitempty"`
		B *Id `json:"b,omitempty"`
	}

	test1 := &Test{}
	test1.A = NewId()
	b_ := NewId()
	test1.B = &b_

	test1Json, err := json.Marshal(test1)
	assert.Equal(t, err, nil)

	test2 := &Test{}
	err = json.Unmarshal(test1Json, test2)
	assert.Equal(t, err, nil)

	assert.Equal(t, test1.A, test2.A)
	assert.Equal(t, test1.B, test2.B)
}

func TestParseId(t *testing.T) {
	a := NewId()
	parsed, err := ParseId(a.String())
	assert.Equal(t, err, nil)
	assert.Equal(t, parsed, a)

	_, err = ParseId("nope")
	assert.NotEqual(t, err, nil)
}

func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func(int)]()

	sum := 0
	aId := callbacks.Add(func(v int) {
		sum += v
	})
	bId := callbacks.Add(func(v int) {
		sum += v * 10
	})
	assert.Equal(t, callbacks.Len(), 2)

	for _, callback := range callbacks.Get() {
		callback(1)
	}
	assert.Equal(t, sum, 11)

	callbacks.Remove(aId)
	for _, callback := range callbacks.Get() {
		callback(1)
	}
	assert.Equal(t, sum, 21)

	// removing twice is a no-op
	callbacks.Remove(aId)
	callbacks.Remove(bId)
	assert.Equal(t, callbacks.Len(), 0)
}

func TestHandleError(t *testing.T) {
	var handled error
	HandleError(
		func() {
			panic("broken")
		},
		func(err error) {
			handled = err
		},
	)
	assert.NotEqual(t, handled, nil)
	assert.Equal(t, handled.Error(), "broken")

	handled = nil
	HandleError(
		func() {},
		func(err error) {
			handled = err
		},
	)
	assert.Equal(t, handled, nil)
}
