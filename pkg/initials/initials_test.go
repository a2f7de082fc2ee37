package initials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "   ", want: ""},
		{name: "two han characters", in: "张三", want: "zs"},
		{name: "three han characters", in: "李小明", want: "lxm"},
		{name: "latin words", in: "Ada Lovelace", want: "al"},
		{name: "diacritics stripped", in: "Zoë Łi Émile", want: "złe"},
		{name: "mixed scripts", in: "王 Wei", want: "ww"},
		{name: "digits start a word", in: "Class 3", want: "c3"},
		{name: "punctuation separates", in: "jean-luc", want: "jl"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Of(tc.in))
		})
	}
}

func TestOfIsDeterministic(t *testing.T) {
	assert.Equal(t, Of("欧阳修"), Of("欧阳修"))
	assert.Equal(t, "oyx", Of("欧阳修"))
}
