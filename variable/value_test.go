package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedAccessorsMatchDeclaredType(t *testing.T) {
	v := NewString("blue")
	assert.Equal(t, String, v.Type())

	s, ok := v.AsString()
	assert.True(t, ok)
	assert.Equal(t, "blue", s)
}

func TestTypedAccessorsReturnFalseOnMismatch(t *testing.T) {
	v := NewString("blue")

	_, ok := v.AsInteger()
	assert.False(t, ok)

	_, ok = v.AsBoolean()
	assert.False(t, ok)

	_, ok = v.AsStringArray()
	assert.False(t, ok)
}

func TestZeroValueIsZero(t *testing.T) {
	var v Value
	assert.True(t, v.IsZero())

	assert.False(t, NewBoolean(false).IsZero())
}

func TestNewStringArrayCopiesInput(t *testing.T) {
	src := []string{"a", "b"}
	v := NewStringArray(src)
	src[0] = "mutated"

	arr, ok := v.AsStringArray()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, arr)
}

func TestFromInterfaceBoolean(t *testing.T) {
	v, ok := FromInterface(Boolean, true)
	assert.True(t, ok)
	b, _ := v.AsBoolean()
	assert.True(t, b)

	_, ok = FromInterface(Boolean, "true")
	assert.False(t, ok)
}

func TestFromInterfaceIntegerAcceptsJSONFloat64(t *testing.T) {
	v, ok := FromInterface(Integer, float64(42))
	assert.True(t, ok)
	i, _ := v.AsInteger()
	assert.Equal(t, int64(42), i)
}

func TestFromInterfaceDouble(t *testing.T) {
	v, ok := FromInterface(Double, float64(3.14))
	assert.True(t, ok)
	d, _ := v.AsDouble()
	assert.Equal(t, 3.14, d)
}

func TestFromInterfaceStringArrayFromJSONSlice(t *testing.T) {
	v, ok := FromInterface(StringArray, []interface{}{"a", "b", "c"})
	assert.True(t, ok)
	arr, _ := v.AsStringArray()
	assert.Equal(t, []string{"a", "b", "c"}, arr)
}

func TestFromInterfaceStringArrayRejectsMixedElementTypes(t *testing.T) {
	_, ok := FromInterface(StringArray, []interface{}{"a", 1})
	assert.False(t, ok)
}

func TestFromInterfaceObject(t *testing.T) {
	obj := map[string]interface{}{"k": "v"}
	v, ok := FromInterface(Object, obj)
	assert.True(t, ok)
	got, _ := v.AsObject()
	assert.Equal(t, obj, got)
}

func TestFromInterfaceJSON(t *testing.T) {
	v, ok := FromInterface(JSON, `{"a":1}`)
	assert.True(t, ok)
	s, _ := v.AsJSON()
	assert.Equal(t, `{"a":1}`, s)
}

func TestFromInterfaceRejectsNil(t *testing.T) {
	_, ok := FromInterface(String, nil)
	assert.False(t, ok)
}

func TestStringRendersForLogging(t *testing.T) {
	assert.Equal(t, "true", NewBoolean(true).String())
	assert.Equal(t, "blue", NewString("blue").String())
	assert.Equal(t, "42", NewInteger(42).String())
	assert.Equal(t, "<unset>", Value{}.String())
}
