package http

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ResponseDecoderTestSuite struct {
	suite.Suite
}

func TestResponseDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseDecoderTestSuite))
}

func (s *ResponseDecoderTestSuite) TestReadLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		limit    uint
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "simple line with CRLF",
			input:    "Hello\r\n",
			expected: "Hello",
		},
		{
			desc:    "line exceeding limit",
			input:   "Hey\r\n",
			limit:   1,
			wantErr: errLineTooLong,
		},
		{
			desc:    "Sole LF (fail)",
			input:   "Hello\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "Sole LF (success)",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Hello\n",
			expected: "Hello",
		},
		{
			desc:     "bare CR inside line",
			input:    "Hello \r World!\r\n",
			expected: "Hello   World!",
		},
		{
			desc:    "EOF before line end",
			input:   "Hello",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			d := NewResponseDecoder(strings.NewReader(tc.input), tc.opts)

			b, err := d.readLine(tc.limit)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, string(b))
		})
	}
}

func (s *ResponseDecoderTestSuite) TestDecode() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected Response
		body     string
		wantErr  error
	}{
		{
			desc: "simple response",
			input: "" +
				"HTTP/1.1 200 OK\r\n" +
				"Content-Type: text/plain\r\n" +
				"Content-Length: 5\r\n" +
				"\r\n" +
				"hello",
			expected: Response{
				StatusLine: StatusLine{Version: Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK"},
				FieldLines: [][]byte{
					[]byte("Content-Type: text/plain"),
					[]byte("Content-Length: 5"),
				},
			},
			body: "hello",
		},
		{
			desc: "malformed field lines are kept raw",
			input: "" +
				"HTTP/1.0 302 Found\r\n" +
				"Location : /next\r\n" +
				"no colon here\r\n" +
				"\r\n",
			expected: Response{
				StatusLine: StatusLine{Version: Version{1, 0}, StatusCode: 302, ReasonPhrase: "Found"},
				FieldLines: [][]byte{
					[]byte("Location : /next"),
					[]byte("no colon here"),
				},
			},
		},
		{
			desc: "interim response skipped",
			input: "" +
				"HTTP/1.1 100 Continue\r\n" +
				"\r\n" +
				"HTTP/1.1 204 No Content\r\n" +
				"\r\n",
			expected: Response{
				StatusLine: StatusLine{Version: Version{1, 1}, StatusCode: 204, ReasonPhrase: "No Content"},
				FieldLines: [][]byte{},
			},
		},
		{
			desc:  "sole LF terminators",
			opts:  DecodeOptions{AllowSoleLF: true},
			input: "HTTP/1.1 404 Not Found\nX-A: b\n\n",
			expected: Response{
				StatusLine: StatusLine{Version: Version{1, 1}, StatusCode: 404, ReasonPhrase: "Not Found"},
				FieldLines: [][]byte{[]byte("X-A: b")},
			},
		},
		{
			desc:    "field line too long",
			opts:    DecodeOptions{MaxFieldLineLength: 8},
			input:   "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n",
			wantErr: ErrFieldLineTooLong,
		},
		{
			desc:    "too many field lines",
			opts:    DecodeOptions{MaxFieldLines: 1},
			input:   "HTTP/1.1 200 OK\r\nA: 1\r\nB: 2\r\n\r\n",
			wantErr: ErrTooManyFieldLines,
		},
		{
			desc:    "malformed status line",
			input:   "HTTP/1.1 2000 OK\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			rd := NewResponseDecoder(strings.NewReader(tc.input), tc.opts)

			var res Response
			err := rd.Decode(&res)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)

			body, err := io.ReadAll(res.Body)
			s.Require().NoError(err)
			s.Equal(tc.body, string(body))

			res.Body = nil
			s.Equal(tc.expected, res)
		})
	}
}

func (s *ResponseDecoderTestSuite) TestDecodeStatusLine() {
	testcases := []struct {
		desc     string
		input    []byte
		opts     DecodeOptions
		expected StatusLine
		wantErr  error
	}{
		{
			desc: "leading empty lines",
			input: []byte("" +
				"\r\n" +
				"\r\n" +
				"HTTP/1.1 200 OK\r\n",
			),
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK"},
		},
		{
			desc:     "lenient whitespace",
			opts:     DecodeOptions{LenientWhitespace: true},
			input:    []byte("  HTTP/1.1\t301 Moved Permanently \r\n"),
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 301, ReasonPhrase: "Moved Permanently"},
		},
		{
			desc:    "length limit exceeded",
			input:   []byte("HTTP/1.1 200 OKKKKKKKKKKKKKKKKKKKKKKKKKKKKKKK\r\n"),
			opts:    DecodeOptions{MaxStatusLineLength: 20},
			wantErr: ErrStatusLineTooLong,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			rd := NewResponseDecoder(bytes.NewReader(tc.input), tc.opts)

			var statLine StatusLine
			err := rd.decodeStatusLine(&statLine)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, statLine)
		})
	}
}

func TestParseStatusLine(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected StatusLine
		wantErr  bool
	}{
		{
			input:    []byte("HTTP/1.1 200 OK"),
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK"},
		},
		{
			input:    []byte("HTTP/1.0 404 Not Found"),
			expected: StatusLine{Version: Version{1, 0}, StatusCode: 404, ReasonPhrase: "Not Found"},
		},
		{
			desc:     "missing reason phrase",
			input:    []byte("HTTP/1.1 204"),
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 204},
		},
		{
			desc:    "invalid status line",
			input:   []byte("INVALID_STATUS_LINE"),
			wantErr: true,
		},
		{
			desc:    "invalid HTTP version",
			input:   []byte("HTTP/1.x 200 OK"),
			wantErr: true,
		},
		{
			desc:    "status code not a number",
			input:   []byte("HTTP/1.1 abc OK"),
			wantErr: true,
		},
	}
	for _, tc := range testcases {
		desc := tc.desc
		if desc == "" {
			desc = string(tc.input)
		}

		t.Run(desc, func(t *testing.T) {
			statLine, err := parseStatusLine(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, statLine)
		})
	}
}
