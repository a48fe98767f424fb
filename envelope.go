package fract

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/vmihailenco/msgpack/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pthm/fract/lib/codec"
)

// Envelope is the top-level response a server sends to update a page.
//
// A non-empty Redirect wins: nothing else in the envelope is looked at.
// Otherwise PreAction runs first and may veto the whole envelope, each entry
// of Components is applied in wire order, and PostAction runs last.
//
// On the wire (JSON shown, MessagePack uses the same keys):
//
//	{
//	  "redirect": "/login",
//	  "preAction": "name" | {"name": "...", "params": {...}},
//	  "postAction": ...,
//	  "components": {
//	    "<path>": "<markup>" | ["<markup>", ...] |
//	      {"fractions": "<markup>" | [...], "method": "append",
//	       "preAction": ..., "postAction": ...}
//	  }
//	}
type Envelope struct {
	Redirect   string        `json:"redirect,omitempty" msgpack:"redirect,omitempty"`
	PreAction  *Action       `json:"preAction,omitempty" msgpack:"preAction,omitempty"`
	PostAction *Action       `json:"postAction,omitempty" msgpack:"postAction,omitempty"`
	Components *ComponentMap `json:"components,omitempty" msgpack:"components,omitempty"`
}

// DecodeEnvelope decodes an envelope using the codec registered for
// contentType. Unknown content types are decoded as JSON.
func DecodeEnvelope(contentType string, data []byte) (*Envelope, error) {
	var env Envelope
	if err := codec.ForContentType(contentType).Unmarshal(data, &env); err != nil {
		if errors.Is(err, ErrInvalidEnvelope) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &env, nil
}

// EncodeEnvelope encodes env with the codec registered for contentType.
func EncodeEnvelope(contentType string, env *Envelope) ([]byte, error) {
	return codec.ForContentType(contentType).Marshal(env)
}

// Action names a registered action and the parameters to call it with.
//
// Actions replace the free-form script hooks of earlier fract versions: the
// server can only ask for callbacks the page registered up front.
type Action struct {
	Name   string         `json:"name" msgpack:"name" mapstructure:"name"`
	Params map[string]any `json:"params,omitempty" msgpack:"params,omitempty" mapstructure:"params"`
}

// Call builds an action descriptor.
func Call(name string, params ...map[string]any) *Action {
	a := &Action{Name: name}
	if len(params) > 0 {
		a.Params = params[0]
	}
	return a
}

// IsZero reports whether the descriptor names no action.
// A nil descriptor is zero.
func (a *Action) IsZero() bool {
	return a == nil || strings.TrimSpace(a.Name) == ""
}

// wireAction is Action without its custom codecs.
type wireAction Action

// MarshalJSON writes a bare name when there are no params.
func (a Action) MarshalJSON() ([]byte, error) {
	if len(a.Params) == 0 {
		return json.Marshal(a.Name)
	}
	return json.Marshal(wireAction(a))
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return a.fromValue(v)
}

func (a *Action) EncodeMsgpack(enc *msgpack.Encoder) error {
	if len(a.Params) == 0 {
		return enc.EncodeString(a.Name)
	}
	return enc.Encode(wireAction(*a))
}

func (a *Action) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	return a.fromValue(normalizeValue(v))
}

func (a *Action) fromValue(v any) error {
	switch t := v.(type) {
	case nil:
		*a = Action{}
	case bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		// false and 0 mean no action, like null.
		if !reflect.ValueOf(t).IsZero() {
			return fmt.Errorf("%w: action must be a name or an object, got %T", ErrInvalidEnvelope, v)
		}
		*a = Action{}
	case string:
		*a = Action{Name: strings.TrimSpace(t)}
	case map[string]any:
		var out Action
		if err := mapstructure.Decode(t, &out); err != nil {
			return fmt.Errorf("%w: action: %v", ErrInvalidEnvelope, err)
		}
		out.Name = strings.TrimSpace(out.Name)
		if out.Name == "" {
			return fmt.Errorf("%w: action without a name", ErrInvalidEnvelope)
		}
		*a = out
	default:
		return fmt.Errorf("%w: action must be a name or an object, got %T", ErrInvalidEnvelope, v)
	}
	return nil
}

// UpdateKind tags the shape an update arrived in.
type UpdateKind int

const (
	// UpdateNone is an absent or falsy update ("" or null). It is skipped.
	UpdateNone UpdateKind = iota
	// UpdateMarkup is a single markup string.
	UpdateMarkup
	// UpdateList is an array of markup strings.
	UpdateList
	// UpdateRecord is an object with fractions, method and actions.
	UpdateRecord
	// UpdateInvalid is an entry that could not be decoded. Err says why.
	UpdateInvalid
)

// Update is the decoded value of one component entry.
//
// The three wire shapes are resolved once while decoding; the applier only
// looks at Kind, Fractions and HasFractions.
type Update struct {
	Kind UpdateKind

	// Fractions is the normalized markup sequence, possibly empty.
	Fractions []string
	// HasFractions is false when a record carried no (or a falsy) fractions
	// field. Markup and list updates always have fractions.
	HasFractions bool

	Method     Method
	PreAction  *Action
	PostAction *Action

	Err error
}

// Markup builds a single-fraction update.
func Markup(markup string) Update {
	if markup == "" {
		return Update{}
	}
	return Update{Kind: UpdateMarkup, Fractions: []string{markup}, HasFractions: true}
}

// List builds an update from several fractions applied with the default
// replace method.
func List(markup ...string) Update {
	return Update{Kind: UpdateList, Fractions: append([]string{}, markup...), HasFractions: true}
}

// Record builds an update with an explicit method.
func Record(method Method, markup ...string) Update {
	return Update{
		Kind:         UpdateRecord,
		Fractions:    append([]string{}, markup...),
		HasFractions: true,
		Method:       method,
	}
}

// WithActions returns a record copy of u carrying component actions.
func (u Update) WithActions(pre, post *Action) Update {
	if u.Kind == UpdateMarkup || u.Kind == UpdateList {
		u.Kind = UpdateRecord
	}
	u.PreAction = pre
	u.PostAction = post
	return u
}

// IsZero reports whether the update is absent and should be skipped.
func (u Update) IsZero() bool {
	return u.Kind == UpdateNone
}

// EffectiveMethod returns the method with the replace default applied.
func (u Update) EffectiveMethod() Method {
	return u.Method.orDefault()
}

// wireRecord is the object shape of an update.
type wireRecord struct {
	Fractions  any    `json:"fractions,omitempty" msgpack:"fractions,omitempty" mapstructure:"fractions"`
	Method     string `json:"method,omitempty" msgpack:"method,omitempty" mapstructure:"method"`
	PreAction  any    `json:"preAction,omitempty" msgpack:"preAction,omitempty" mapstructure:"preAction"`
	PostAction any    `json:"postAction,omitempty" msgpack:"postAction,omitempty" mapstructure:"postAction"`
}

func (u Update) wire() (any, error) {
	switch u.Kind {
	case UpdateNone:
		return nil, nil
	case UpdateMarkup:
		if len(u.Fractions) != 1 {
			return nil, fmt.Errorf("%w: markup update with %d fractions", ErrInvalidEnvelope, len(u.Fractions))
		}
		return u.Fractions[0], nil
	case UpdateList:
		return u.Fractions, nil
	case UpdateRecord:
		rec := wireRecord{Method: string(u.Method)}
		if u.HasFractions {
			rec.Fractions = u.Fractions
		}
		if !u.PreAction.IsZero() {
			rec.PreAction = u.PreAction
		}
		if !u.PostAction.IsZero() {
			rec.PostAction = u.PostAction
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: cannot encode update: %v", ErrInvalidEnvelope, u.Err)
}

func (u Update) MarshalJSON() ([]byte, error) {
	v, err := u.wire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// UnmarshalJSON never fails on a well-formed but unexpected shape; the entry
// becomes UpdateInvalid so sibling components still apply.
func (u *Update) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = updateFromValue(v)
	return nil
}

// updateFromValue classifies a generically decoded entry.
func updateFromValue(v any) Update {
	switch t := v.(type) {
	case nil:
		return Update{}
	case bool:
		if !t {
			return Update{}
		}
		return Update{Kind: UpdateRecord}
	case string:
		return Markup(t)
	case []any:
		fractions, err := stringList(t)
		if err != nil {
			return invalidUpdate(err)
		}
		return Update{Kind: UpdateList, Fractions: fractions, HasFractions: true}
	case map[string]any:
		return recordFromMap(t)
	}
	return invalidUpdate(fmt.Errorf("unsupported update type %T", v))
}

func recordFromMap(m map[string]any) Update {
	var rec wireRecord
	if err := mapstructure.Decode(m, &rec); err != nil {
		return invalidUpdate(err)
	}
	u := Update{Kind: UpdateRecord, Method: Method(strings.TrimSpace(rec.Method))}

	switch f := rec.Fractions.(type) {
	case nil:
	case string:
		if f != "" {
			u.Fractions = []string{f}
			u.HasFractions = true
		}
	case []any:
		fractions, err := stringList(f)
		if err != nil {
			return invalidUpdate(err)
		}
		u.Fractions = fractions
		u.HasFractions = true
	default:
		return invalidUpdate(fmt.Errorf("fractions must be a string or a list, got %T", f))
	}

	for _, slot := range []struct {
		raw any
		dst **Action
	}{{rec.PreAction, &u.PreAction}, {rec.PostAction, &u.PostAction}} {
		if slot.raw == nil {
			continue
		}
		a := &Action{}
		if err := a.fromValue(slot.raw); err != nil {
			return invalidUpdate(err)
		}
		if !a.IsZero() {
			*slot.dst = a
		}
	}
	return u
}

func stringList(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("fraction %d is %T, not a string", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func invalidUpdate(err error) Update {
	if !errors.Is(err, ErrInvalidEnvelope) {
		err = fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return Update{Kind: UpdateInvalid, Err: err}
}

// normalizeValue rewrites MessagePack's interface-keyed maps into the
// string-keyed maps the JSON decoder produces.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeValue(val)
		}
		return t
	}
	return v
}

// ComponentMap maps component paths to updates, keeping wire order.
type ComponentMap struct {
	m *orderedmap.OrderedMap[string, Update]
}

// NewComponentMap returns an empty map.
func NewComponentMap() *ComponentMap {
	return &ComponentMap{m: orderedmap.New[string, Update]()}
}

func (c *ComponentMap) init() {
	if c.m == nil {
		c.m = orderedmap.New[string, Update]()
	}
}

// Set adds or replaces the update for path. A replaced path keeps its
// original position.
func (c *ComponentMap) Set(path string, u Update) *ComponentMap {
	c.init()
	c.m.Set(path, u)
	return c
}

// Get returns the update stored for path.
func (c *ComponentMap) Get(path string) (Update, bool) {
	if c == nil || c.m == nil {
		return Update{}, false
	}
	return c.m.Get(path)
}

// Len returns the number of entries.
func (c *ComponentMap) Len() int {
	if c == nil || c.m == nil {
		return 0
	}
	return c.m.Len()
}

// All iterates entries in insertion order.
func (c *ComponentMap) All() iter.Seq2[string, Update] {
	return func(yield func(string, Update) bool) {
		if c == nil || c.m == nil {
			return
		}
		for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Paths returns the keys in insertion order.
func (c *ComponentMap) Paths() []string {
	var out []string
	for path := range c.All() {
		out = append(out, path)
	}
	return out
}

func (c *ComponentMap) MarshalJSON() ([]byte, error) {
	c.init()
	return c.m.MarshalJSON()
}

func (c *ComponentMap) UnmarshalJSON(data []byte) error {
	c.m = orderedmap.New[string, Update]()
	return c.m.UnmarshalJSON(data)
}

func (c *ComponentMap) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(c.Len()); err != nil {
		return err
	}
	for path, u := range c.All() {
		if err := enc.EncodeString(path); err != nil {
			return err
		}
		v, err := u.wire()
		if err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *ComponentMap) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	c.m = orderedmap.New[string, Update]()
	for i := 0; i < n; i++ {
		path, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		c.m.Set(path, updateFromValue(normalizeValue(v)))
	}
	return nil
}
