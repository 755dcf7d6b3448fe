package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "title case", input: "jane DOE", want: "Jane Doe"},
		{name: "trims and collapses line breaks", input: "  house 12,\r\nroad 5\n\ndhaka ", want: "House 12, Road 5 Dhaka"},
		{name: "decodes entities", input: "m &amp; s traders", want: "M & S Traders"},
		{name: "missing marker", input: "nan", want: ""},
		{name: "empty", input: "   ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Text(tc.input))
		})
	}
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "01712345678", Phone("1712345678.0"))
	assert.Equal(t, "01712345678", Phone("01712345678"))
	assert.Equal(t, "01712345678", Phone(" 1712345678 "))
	assert.Equal(t, "", Phone(""))
	assert.Equal(t, "", Phone("NaN"))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "0", Amount("1500", "Paid in full"))
	assert.Equal(t, "0", Amount("1500", "already PAID via bkash"))
	assert.Equal(t, "1250", Amount("1250.75", ""))
	assert.Equal(t, "1250", Amount("1,250", "call before delivery"))
	assert.Equal(t, "980", Amount("Tk 980", ""))
	assert.Equal(t, "0", Amount("", ""))
	assert.Equal(t, "0", Amount("n/a", ""))
}

func TestItem(t *testing.T) {
	got, ok := Item("widget a", "2")
	assert.True(t, ok)
	assert.Equal(t, "Widget A (2)", got)

	got, ok = Item("widget a", "2.0")
	assert.True(t, ok)
	assert.Equal(t, "Widget A (2)", got)

	got, ok = Item("Widget B", "")
	assert.True(t, ok)
	assert.Equal(t, "Widget B", got)

	got, ok = Item("Widget B", "nan")
	assert.True(t, ok)
	assert.Equal(t, "Widget B", got)

	_, ok = Item("   ", "3")
	assert.False(t, ok)

	_, ok = Item("nan", "3")
	assert.False(t, ok)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \n"))
	assert.True(t, IsBlank("None"))
	assert.False(t, IsBlank("0"))
}
