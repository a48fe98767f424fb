// Package codec provides the wire codecs for fract envelopes and the HMAC
// signer used to authenticate them.
//
// Two content types are supported:
//   - application/json (default, what browsers and most servers speak)
//   - application/msgpack (compact, negotiated through Accept)
package codec

import (
	"encoding/json"
	"mime"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types understood by ForContentType and Negotiate.
const (
	JSON    = "application/json"
	Msgpack = "application/msgpack"
)

// Codec marshals envelopes for one content type.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                { return JSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return Msgpack }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

var (
	jsonC    Codec = jsonCodec{}
	msgpackC Codec = msgpackCodec{}
)

// ForContentType returns the codec for a Content-Type header value.
// Parameters are ignored; anything that is not MessagePack is JSON.
func ForContentType(contentType string) Codec {
	if isMsgpack(mediaType(contentType)) {
		return msgpackC
	}
	return jsonC
}

// Negotiate picks a codec for an Accept header value. MessagePack is chosen
// only when it is acceptable with a higher quality than JSON.
func Negotiate(accept string) Codec {
	var jsonQ, packQ float64 = -1, -1
	for _, part := range strings.Split(accept, ",") {
		mt, q := parseAccept(part)
		switch {
		case isMsgpack(mt):
			packQ = max(packQ, q)
		case mt == JSON || mt == "*/*" || mt == "application/*":
			jsonQ = max(jsonQ, q)
		}
	}
	if packQ > 0 && packQ > jsonQ {
		return msgpackC
	}
	return jsonC
}

func isMsgpack(mt string) bool {
	switch mt {
	case Msgpack, "application/x-msgpack", "application/vnd.msgpack":
		return true
	}
	return false
}

func mediaType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}

func parseAccept(part string) (string, float64) {
	mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
	if err != nil {
		return "", 0
	}
	q := 1.0
	if raw, ok := params["q"]; ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			q = parsed
		}
	}
	return mt, q
}
