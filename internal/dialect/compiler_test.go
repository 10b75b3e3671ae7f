package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForName(t *testing.T) {
	testCases := []struct {
		tag  string
		want string
	}{
		{"odata", OData},
		{"OData", OData},
		{"  ODATA ", OData},
		{"rest", REST},
		{"REST", REST},
		{"", REST},
		{"graphql", REST},
	}

	for _, tc := range testCases {
		t.Run(tc.tag, func(t *testing.T) {
			assert.Equal(t, tc.want, ForName(tc.tag).Dialect())
		})
	}
}

func TestForName_ReturnsConcreteCompilers(t *testing.T) {
	assert.IsType(t, ODataCompiler{}, ForName("odata"))
	assert.IsType(t, RESTCompiler{}, ForName("anything"))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("rest"))
	assert.True(t, Known(" OData"))
	assert.False(t, Known(""))
	assert.False(t, Known("soap"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"odata", "rest"}, Names())
}

func TestEscape(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"push", "push"},
		{"a b", "a%20b"},
		{"name_desc,createddate_asc", "name_desc,createddate_asc"},
		{"contains(name, 'push')", "contains(name,%20'push')"},
		{"$filter", "$filter"},
		{"2024-01-02T03:04:05Z", "2024-01-02T03:04:05Z"},
		{"a&b=c", "a%26b%3Dc"},
		{"1+1", "1%2B1"},
		{"100%", "100%25"},
		{"#;?", "%23%3B%3F"},
		{"café", "caf%C3%A9"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Escape(tc.in))
		})
	}
}

func TestResult_Encode(t *testing.T) {
	r := &Result{Dialect: REST}
	r.add("b", "2")
	r.add("a", "x y")
	r.add("b", "3")

	// Keys keep insertion order; url.Values would sort them.
	assert.Equal(t, "b=2&a=x%20y&b=3", r.Encode())
	assert.Equal(t, r.Encode(), r.String())
	assert.Equal(t, []string{"b", "a", "b"}, r.Keys())
}

func TestResult_Get(t *testing.T) {
	r := &Result{}
	r.add("k", "first")
	r.add("k", "second")

	v, ok := r.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestResult_NilSafe(t *testing.T) {
	var r *Result
	assert.Equal(t, "", r.Encode())
	assert.Nil(t, r.Keys())
	assert.NoError(t, r.StrictErr())
	_, ok := r.Get("x")
	assert.False(t, ok)
}

func TestResult_StrictErr(t *testing.T) {
	r := &Result{Dialect: REST}
	assert.NoError(t, r.StrictErr())

	r.Warnings = []string{"first", "second"}
	err := r.StrictErr()
	require.Error(t, err)
	assert.True(t, IsUnsupportedShape(err))
	assert.Equal(t, "rest dialect: unsupported shape: first; second", err.Error())
}

func TestErrors(t *testing.T) {
	shape := &UnsupportedShapeError{Dialect: OData, Node: "a gt b", Reason: "no"}
	assert.Equal(t, `odata dialect: unsupported shape "a gt b": no`, shape.Error())
	assert.False(t, IsInvalidField(shape))

	field := &InvalidFieldError{Dialect: REST, Context: "sort"}
	assert.Equal(t, "rest dialect: empty field reference in sort", field.Error())
	assert.False(t, IsUnsupportedShape(field))
}
