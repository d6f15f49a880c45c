package server

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormList(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		want    []string
		present bool
	}{
		{
			name:   "absent",
			values: url.Values{"title": {"x"}},
		},
		{
			name:    "repeated fields",
			values:  url.Values{"keep_existing": {"a", "b"}},
			want:    []string{"a", "b"},
			present: true,
		},
		{
			name:    "bracketed fields",
			values:  url.Values{"keep_existing[]": {"a", "b"}},
			want:    []string{"a", "b"},
			present: true,
		},
		{
			name:    "json array",
			values:  url.Values{"keep_existing": {`["https://cdn.test/a.jpg", "b"]`}},
			want:    []string{"https://cdn.test/a.jpg", "b"},
			present: true,
		},
		{
			name:    "comma joined",
			values:  url.Values{"keep_existing": {"a, b,,c"}},
			want:    []string{"a", "b", "c"},
			present: true,
		},
		{
			name:    "present but empty",
			values:  url.Values{"keep_existing": {""}},
			want:    []string{},
			present: true,
		},
		{
			name:    "empty json array",
			values:  url.Values{"keep_existing": {"[]"}},
			want:    []string{},
			present: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := formList(tt.values, "keep_existing")
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.NotNil(t, got)
			}
		})
	}
}

func TestFormBool(t *testing.T) {
	values := url.Values{
		"a": {"true"},
		"b": {"on"},
		"c": {"1"},
		"d": {"no"},
		"e": {""},
	}
	assert.True(t, formBool(values, "a"))
	assert.True(t, formBool(values, "b"))
	assert.True(t, formBool(values, "c"))
	assert.False(t, formBool(values, "d"))
	assert.False(t, formBool(values, "e"))
	assert.False(t, formBool(values, "missing"))
}

func TestPresent(t *testing.T) {
	values := url.Values{"title": {"  Hello "}, "description": {""}}

	if assert.NotNil(t, present(values, "title")) {
		assert.Equal(t, "Hello", *present(values, "title"))
	}
	if assert.NotNil(t, present(values, "description")) {
		assert.Empty(t, *present(values, "description"))
	}
	assert.Nil(t, present(values, "summary"))
}
