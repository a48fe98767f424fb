package fract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pthm/fract/lib/codec"
)

var ignoreErr = cmpopts.IgnoreFields(Update{}, "Err")

func TestDecodeEnvelopeKeepsComponentOrder(t *testing.T) {
	data := []byte(`{"components":{"zeta":"<p>1</p>","alpha":"<p>2</p>","mid":"<p>3</p>"}}`)

	env, err := DecodeEnvelope(codec.JSON, data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, env.Components.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeUpdateShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Update
	}{
		{
			name: "markup",
			raw:  `"<div>hi</div>"`,
			want: Update{Kind: UpdateMarkup, Fractions: []string{"<div>hi</div>"}, HasFractions: true},
		},
		{
			name: "empty string is skipped",
			raw:  `""`,
			want: Update{},
		},
		{
			name: "null is skipped",
			raw:  `null`,
			want: Update{},
		},
		{
			name: "false is skipped",
			raw:  `false`,
			want: Update{},
		},
		{
			name: "list",
			raw:  `["<li>a</li>","<li>b</li>"]`,
			want: Update{Kind: UpdateList, Fractions: []string{"<li>a</li>", "<li>b</li>"}, HasFractions: true},
		},
		{
			name: "empty list",
			raw:  `[]`,
			want: Update{Kind: UpdateList, Fractions: []string{}, HasFractions: true},
		},
		{
			name: "record with single fraction",
			raw:  `{"fractions":"<li>a</li>","method":"append"}`,
			want: Update{Kind: UpdateRecord, Fractions: []string{"<li>a</li>"}, HasFractions: true, Method: MethodAppend},
		},
		{
			name: "record with actions",
			raw:  `{"fractions":["<li>a</li>"],"method":"prepend","preAction":"confirm","postAction":{"name":"focus","params":{"sel":"#x"}}}`,
			want: Update{
				Kind:         UpdateRecord,
				Fractions:    []string{"<li>a</li>"},
				HasFractions: true,
				Method:       MethodPrepend,
				PreAction:    &Action{Name: "confirm"},
				PostAction:   &Action{Name: "focus", Params: map[string]any{"sel": "#x"}},
			},
		},
		{
			name: "record without fractions",
			raw:  `{"method":"append"}`,
			want: Update{Kind: UpdateRecord, Method: MethodAppend},
		},
		{
			name: "record with empty fractions string",
			raw:  `{"fractions":""}`,
			want: Update{Kind: UpdateRecord},
		},
		{
			name: "true is a record without fractions",
			raw:  `true`,
			want: Update{Kind: UpdateRecord},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Update
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, ignoreErr); diff != "" {
				t.Errorf("Update mismatch (-want +got):\n%s", diff)
			}
			if got.Err != nil {
				t.Errorf("Err = %v, want nil", got.Err)
			}
		})
	}
}

func TestDecodeInvalidUpdates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"number", `42`},
		{"list with non-string", `["<p>a</p>", 1]`},
		{"fractions of wrong type", `{"fractions": 3}`},
		{"action without name", `{"fractions":"<p>a</p>","preAction":{"params":{}}}`},
		{"action of wrong type", `{"fractions":"<p>a</p>","postAction":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Update
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got.Kind != UpdateInvalid {
				t.Errorf("Kind = %v, want UpdateInvalid", got.Kind)
			}
			if !errors.Is(got.Err, ErrInvalidEnvelope) {
				t.Errorf("Err = %v, want ErrInvalidEnvelope", got.Err)
			}
		})
	}
}

func TestInvalidComponentDoesNotFailEnvelope(t *testing.T) {
	data := []byte(`{"components":{"bad":42,"good":"<p>ok</p>"}}`)

	env, err := DecodeEnvelope(codec.JSON, data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	bad, _ := env.Components.Get("bad")
	good, _ := env.Components.Get("good")
	if bad.Kind != UpdateInvalid {
		t.Errorf("bad.Kind = %v, want UpdateInvalid", bad.Kind)
	}
	if good.Kind != UpdateMarkup {
		t.Errorf("good.Kind = %v, want UpdateMarkup", good.Kind)
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `<html>`},
		{"top-level action without name", `{"preAction":{"params":{"a":"b"}}}`},
		{"top-level action of wrong type", `{"postAction":[1,2]}`},
		{"top-level action true", `{"preAction":true}`},
		{"top-level action non-zero number", `{"preAction":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope(codec.JSON, []byte(tt.data))
			if !errors.Is(err, ErrInvalidEnvelope) {
				t.Fatalf("DecodeEnvelope() error = %v, want ErrInvalidEnvelope", err)
			}
			if n := strings.Count(err.Error(), ErrInvalidEnvelope.Error()); n != 1 {
				t.Errorf("error %q names ErrInvalidEnvelope %d times, want once", err, n)
			}
		})
	}
}

func TestDecodeEnvelopeActions(t *testing.T) {
	data := []byte(`{"redirect":"/login","preAction":"confirm","postAction":{"name":"focus","params":{"sel":"#q"}}}`)

	env, err := DecodeEnvelope("application/json; charset=utf-8", data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	want := &Envelope{
		Redirect:   "/login",
		PreAction:  &Action{Name: "confirm"},
		PostAction: &Action{Name: "focus", Params: map[string]any{"sel": "#q"}},
	}
	if diff := cmp.Diff(want, env, cmpopts.IgnoreUnexported(ComponentMap{})); diff != "" {
		t.Errorf("Envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEnvelopeFalsyActions(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"json false and zero", codec.JSON, []byte(`{"preAction":false,"postAction":0}`)},
		{"json null and empty", codec.JSON, []byte(`{"preAction":null,"postAction":""}`)},
		{"msgpack false and zero", codec.Msgpack, mustMsgpack(t, map[string]any{"preAction": false, "postAction": 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope(tt.contentType, tt.data)
			if err != nil {
				t.Fatalf("DecodeEnvelope() error = %v", err)
			}
			if !env.PreAction.IsZero() || !env.PostAction.IsZero() {
				t.Errorf("actions = %+v, %+v, want none", env.PreAction, env.PostAction)
			}
		})
	}
}

func TestInvalidComponentActionNamesErrorOnce(t *testing.T) {
	env, err := DecodeEnvelope(codec.JSON, []byte(`{"components":{"a":{"fractions":"<p>x</p>","postAction":true},"b":{"fractions":"<p>y</p>","preAction":false}}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}

	a, _ := env.Components.Get("a")
	if a.Kind != UpdateInvalid {
		t.Fatalf("a.Kind = %v, want UpdateInvalid", a.Kind)
	}
	if n := strings.Count(a.Err.Error(), ErrInvalidEnvelope.Error()); n != 1 {
		t.Errorf("error %q names ErrInvalidEnvelope %d times, want once", a.Err, n)
	}

	b, _ := env.Components.Get("b")
	if b.Kind != UpdateRecord || b.PreAction != nil {
		t.Errorf("b = %+v, want a record without pre action", b)
	}
}

func mustMsgpack(t *testing.T, v any) []byte {
	t.Helper()
	data, err := codec.ForContentType(codec.Msgpack).Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestActionMarshalJSON(t *testing.T) {
	bare, err := json.Marshal(Call("focus"))
	if err != nil {
		t.Fatal(err)
	}
	if string(bare) != `"focus"` {
		t.Errorf("bare action = %s, want \"focus\"", bare)
	}

	withParams, err := json.Marshal(Call("focus", map[string]any{"sel": "#q"}))
	if err != nil {
		t.Fatal(err)
	}
	if string(withParams) != `{"name":"focus","params":{"sel":"#q"}}` {
		t.Errorf("action with params = %s", withParams)
	}
}

func TestEnvelopeMsgpackKeepsOrderAndShapes(t *testing.T) {
	env := &Envelope{
		PreAction: Call("confirm", map[string]any{"q": "sure"}),
		Components: NewComponentMap().
			Set("zeta", Markup("<p>z</p>")).
			Set("alpha", List("<li>a</li>", "<li>b</li>")).
			Set("mid", Record(MethodAppend, "<li>m</li>").WithActions(nil, Call("focus"))),
	}

	data, err := EncodeEnvelope(codec.Msgpack, env)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}
	got, err := DecodeEnvelope(codec.Msgpack, data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, got.Components.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(env.PreAction, got.PreAction); diff != "" {
		t.Errorf("PreAction mismatch (-want +got):\n%s", diff)
	}
	for path, want := range env.Components.All() {
		u, _ := got.Components.Get(path)
		if diff := cmp.Diff(want, u, ignoreErr); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestComponentMapSetKeepsPosition(t *testing.T) {
	m := NewComponentMap().
		Set("a", Markup("<p>1</p>")).
		Set("b", Markup("<p>2</p>")).
		Set("a", Markup("<p>3</p>"))

	if diff := cmp.Diff([]string{"a", "b"}, m.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	u, _ := m.Get("a")
	if u.Fractions[0] != "<p>3</p>" {
		t.Errorf("a = %v, want replaced value", u.Fractions)
	}

	var nilMap *ComponentMap
	if nilMap.Len() != 0 || len(nilMap.Paths()) != 0 {
		t.Error("nil map should be empty")
	}
}

func TestUpdateWithActions(t *testing.T) {
	u := Markup("<p>x</p>").WithActions(Call("a"), nil)
	if u.Kind != UpdateRecord {
		t.Errorf("Kind = %v, want UpdateRecord", u.Kind)
	}
	if u.EffectiveMethod() != MethodReplace {
		t.Errorf("EffectiveMethod() = %q, want replace", u.EffectiveMethod())
	}
	if !Markup("").IsZero() {
		t.Error("Markup(\"\") should be zero")
	}
}
