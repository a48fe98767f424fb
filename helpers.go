package fract

import (
	"net/http"

	"github.com/pthm/fract/lib/codec"
)

// RequestHeader is set to "true" on every request the Client sends.
const RequestHeader = "X-Fract-Request"

// IsFract returns true if the request was sent by a fract Client.
//
// Use this to answer with an envelope for fract requests and with a full
// page otherwise:
//
//	if fract.IsFract(r) {
//	    return resp.Write(w, r)
//	}
//	return fullPage(w, r)
func IsFract(r *http.Request) bool {
	return r.Header.Get(RequestHeader) == "true"
}

// WantsMsgpack returns true if the request's Accept header prefers
// MessagePack envelopes over JSON.
func WantsMsgpack(r *http.Request) bool {
	return codec.Negotiate(r.Header.Get("Accept")).ContentType() == codec.Msgpack
}

// CurrentURL returns the page URL the client reported via the Referer header.
//
// Returns empty string if the header is not present.
func CurrentURL(r *http.Request) string {
	return r.Header.Get("Referer")
}
