// Package http holds the HTTP/1.1 message head as it appears on the wire:
// versions, raw field lines, the response decoder and the request encoder.
// It does not interpret field values; see package semantic for that.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
