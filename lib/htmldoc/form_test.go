package htmldoc

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const formPage = `<form action="/save" method="post" enctype="Multipart/Form-Data">
	<input name="title" value="milk">
	<input name="empty">
	<input type="hidden" name="id" value="7">
	<input type="checkbox" name="tags" value="a" checked>
	<input type="checkbox" name="tags" value="b">
	<input type="checkbox" name="tags" value="c" checked>
	<input type="radio" name="size" value="s">
	<input type="radio" name="size" value="l" checked>
	<input type="file" name="upload">
	<input type="submit" name="go" value="Go">
	<input name="off" value="x" disabled>
	<fieldset disabled><input name="inside" value="y"></fieldset>
	<textarea name="note">line one
line two</textarea>
	<select name="pick"><option>first</option><option value="2">second</option></select>
	<select name="many" multiple><option value="x" selected>x</option><option value="y" selected>y</option><option value="z">z</option></select>
	<select name="none" multiple><option value="q">q</option></select>
	<div><input name="nested" value="deep"></div>
	<button name="action" value="save">Save</button>
	<button name="action" value="delete" disabled>Delete</button>
</form>`

func TestReadForm(t *testing.T) {
	doc, err := ParseString(formPage)
	require.NoError(t, err)
	forms, _ := doc.Query("form")

	f, err := doc.ReadForm(context.Background(), forms[0], nil)
	require.NoError(t, err)

	assert.Equal(t, "/save", f.Action)
	assert.Equal(t, "POST", f.Method)
	assert.Equal(t, "multipart/form-data", f.Enctype)
	assert.Equal(t, url.Values{
		"title":  {"milk"},
		"empty":  {""},
		"id":     {"7"},
		"tags":   {"a", "c"},
		"size":   {"l"},
		"note":   {"line one\nline two"},
		"pick":   {"first"},
		"many":   {"x", "y"},
		"nested": {"deep"},
	}, f.Values)
}

func TestReadFormSubmitter(t *testing.T) {
	doc, err := ParseString(formPage)
	require.NoError(t, err)
	forms, _ := doc.Query("form")
	buttons, _ := doc.Query("button")

	tests := []struct {
		name      string
		submitter *html.Node
		want      []string
	}{
		{"enabled button", buttons[0], []string{"save"}},
		{"disabled button", buttons[1], nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := doc.ReadForm(context.Background(), forms[0], &tt.submitter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Values["action"])
		})
	}
}

func TestReadFormRejectsNonForm(t *testing.T) {
	doc, err := ParseString(`<div>x</div>`)
	require.NoError(t, err)
	divs, _ := doc.Query("div")

	_, err = doc.ReadForm(context.Background(), divs[0], nil)
	assert.Error(t, err)
}
