package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"application/json", JSON},
		{"application/json; charset=utf-8", JSON},
		{"", JSON},
		{"text/html", JSON},
		{"application/msgpack", Msgpack},
		{"application/x-msgpack", Msgpack},
		{"Application/MsgPack", Msgpack},
		{"application/vnd.msgpack; q=1", Msgpack},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, ForContentType(tt.contentType).ContentType())
		})
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"empty", "", JSON},
		{"json only", "application/json", JSON},
		{"msgpack only", "application/msgpack", Msgpack},
		{"equal quality prefers json", "application/json, application/msgpack", JSON},
		{"msgpack preferred", "application/json;q=0.5, application/msgpack", Msgpack},
		{"wildcard beats lower msgpack", "*/*, application/x-msgpack;q=0.8", JSON},
		{"msgpack refused", "application/msgpack;q=0", JSON},
		{"garbage", ";;;", JSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.accept).ContentType())
		})
	}
}

type sample struct {
	Name  string   `json:"name" msgpack:"name"`
	Items []string `json:"items" msgpack:"items"`
}

func TestCodecsRoundTrip(t *testing.T) {
	in := sample{Name: "cart", Items: []string{"<li>a</li>"}}

	for _, c := range []Codec{ForContentType(JSON), ForContentType(Msgpack)} {
		t.Run(c.ContentType(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
