package htmldoc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pthm/fract"
)

// ReadForm implements fract.FormReader following the browser's form data
// rules for the common controls: disabled controls, unchecked boxes and
// buttons other than the submitter are left out.
func (d *Document) ReadForm(_ context.Context, form *html.Node, submitter **html.Node) (fract.Form, error) {
	if form == nil || form.Type != html.ElementNode || form.DataAtom != atom.Form {
		return fract.Form{}, fmt.Errorf("htmldoc: not a form element")
	}

	action, _ := Attr(form, "action")
	method, _ := Attr(form, "method")
	enctype, _ := Attr(form, "enctype")
	f := fract.Form{
		Action:  action,
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		Enctype: strings.ToLower(strings.TrimSpace(enctype)),
		Values:  url.Values{},
	}

	collectControls(form, f.Values)

	if submitter != nil && *submitter != nil {
		if name, ok := Attr(*submitter, "name"); ok && name != "" && !disabled(*submitter) {
			value, _ := Attr(*submitter, "value")
			f.Values.Add(name, value)
		}
	}
	return f, nil
}

func collectControls(n *html.Node, values url.Values) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if disabled(c) {
			continue
		}
		if name, ok := Attr(c, "name"); ok && name != "" {
			switch c.DataAtom {
			case atom.Input:
				addInput(c, name, values)
			case atom.Textarea:
				values.Add(name, textContent(c))
			case atom.Select:
				addSelect(c, name, values)
			}
		}
		collectControls(c, values)
	}
}

func addInput(n *html.Node, name string, values url.Values) {
	typ, _ := Attr(n, "type")
	switch strings.ToLower(typ) {
	case "submit", "button", "reset", "image", "file":
		return
	case "checkbox", "radio":
		if _, checked := Attr(n, "checked"); !checked {
			return
		}
		value, ok := Attr(n, "value")
		if !ok {
			value = "on"
		}
		values.Add(name, value)
	default:
		value, _ := Attr(n, "value")
		values.Add(name, value)
	}
}

func addSelect(n *html.Node, name string, values url.Values) {
	var options []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Option {
				options = append(options, c)
			}
			walk(c)
		}
	}
	walk(n)

	_, multiple := Attr(n, "multiple")
	selected := 0
	for _, opt := range options {
		if _, ok := Attr(opt, "selected"); ok && !disabled(opt) {
			values.Add(name, optionValue(opt))
			selected++
		}
	}
	if selected == 0 && !multiple && len(options) > 0 {
		values.Add(name, optionValue(options[0]))
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := Attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(opt))
}

func disabled(n *html.Node) bool {
	_, ok := Attr(n, "disabled")
	return ok
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
