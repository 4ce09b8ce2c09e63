// Package uri implements Uniform Resource Identifier (URI) parsing,
// reference resolution and normalization.
//
// Components are kept in their encoded form, so [URI.String] reproduces the parsed input.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
package uri
