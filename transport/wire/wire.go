// Package wire performs single HTTP/1.1 round trips over OS sockets.
// It never follows redirects, never decodes content and never reuses connections.
package wire

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"resource-fetch/application/fetch"
	"resource-fetch/application/http"
	"resource-fetch/application/http/semantic"
	"resource-fetch/application/http/transfer"
	iolib "resource-fetch/lib/io"
	"resource-fetch/transport"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultUserAgent = "resource-fetch/1.0"

type Options struct {
	// Dialer defaults to a [net.Dialer] with Timeout as its dial timeout.
	Dialer transport.Dialer

	// TLSConfig replaces the accept-all policy requested by the fetcher.
	TLSConfig *tls.Config

	// Timeout bounds connecting and reading the response head. Zero means none.
	Timeout time.Duration

	Encode http.EncodeOptions
	// Decode defaults to [http.DefaultDecodeOptions].
	Decode http.DecodeOptions
}

// Opener implements [fetch.Opener].
type Opener struct {
	opts   Options
	logger zerolog.Logger
}

var _ fetch.Opener = (*Opener)(nil)

func New(logger zerolog.Logger, opts Options) *Opener {
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{Timeout: opts.Timeout}
	}
	if opts.Decode == (http.DecodeOptions{}) {
		opts.Decode = http.DefaultDecodeOptions
	}

	return &Opener{opts: opts, logger: logger}
}

// Open sends one request and reads the response head.
// The returned body reads the content as framed on the wire; closing it closes the connection.
func (o *Opener) Open(ctx context.Context, uri *url.URL, opts fetch.RequestOptions) (*fetch.RawResponse, error) {
	addr, err := transport.Addr(uri)
	if err != nil {
		return nil, errors.Wrap(err, "resolving address")
	}

	conn, err := o.opts.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	// Cancelling ctx interrupts any blocked read or write, body included.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})

	var once sync.Once
	closeConn := closerFunc(func() error {
		var err error
		once.Do(func() {
			stop()
			err = conn.Close()
		})
		return err
	})

	res, body, err := o.roundtrip(ctx, conn, uri, opts)
	if err != nil {
		closeConn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, err.Error())
		}
		return nil, err
	}

	res.Body = iolib.ReadCloser(body, closeConn)
	return res, nil
}

// roundtrip exchanges heads and returns the response with its framed content.
func (o *Opener) roundtrip(
	ctx context.Context, conn net.Conn, uri *url.URL, opts fetch.RequestOptions,
) (*fetch.RawResponse, io.Reader, error) {
	if o.opts.Timeout > 0 {
		if err := setDeadline(ctx, conn, time.Now().Add(o.opts.Timeout)); err != nil {
			return nil, nil, errors.Wrap(err, "setting deadline")
		}
	}

	rw := io.ReadWriter(conn)
	if strings.EqualFold(uri.Scheme, "https") {
		tlsConn := tls.Client(conn, o.tlsConfig(uri, opts))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, nil, errors.Wrap(err, "TLS handshake")
		}
		rw = tlsConn
	}

	method := opts.Method
	if method == "" {
		method = semantic.MethodGet
	}

	head := http.RequestHead{
		Method:  string(method),
		Target:  uri.RequestURI(),
		Version: http.Version{1, 1},
		Fields:  requestFields(uri, opts),
	}
	if err := http.NewRequestEncoder(rw, o.opts.Encode).Encode(head); err != nil {
		return nil, nil, errors.Wrap(err, "sending request")
	}

	var res http.Response
	if err := http.NewResponseDecoder(rw, o.opts.Decode).Decode(&res); err != nil {
		return nil, nil, errors.Wrap(err, "receiving response")
	}

	// The head is in. The body has no deadline but ctx.
	if o.opts.Timeout > 0 {
		if err := setDeadline(ctx, conn, time.Time{}); err != nil {
			return nil, nil, errors.Wrap(err, "clearing deadline")
		}
	}

	// Framing only needs a lenient view, header validation is the caller's.
	header, _ := semantic.ParseHeaderLines(res.FieldLines, false)
	framing, err := semantic.ResponseFraming(header, method, res.StatusCode)
	if err != nil {
		return nil, nil, errors.Wrap(err, "determining message length")
	}

	o.logger.Trace().
		Str("uri", uri.String()).
		Uint("status", res.StatusCode).
		Int("framing", int(framing.Kind)).
		Msg("Received response head")

	raw := &fetch.RawResponse{
		StatusCode:  res.StatusCode,
		Version:     res.Version,
		HeaderLines: res.FieldLines,
	}
	return raw, o.frameBody(uri, res.Body, framing), nil
}

// setDeadline must not undo the past deadline set when ctx is cancelled.
func setDeadline(ctx context.Context, conn net.Conn, t time.Time) error {
	if err := conn.SetDeadline(t); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return conn.SetDeadline(time.Unix(1, 0))
	}
	return nil
}

func (o *Opener) tlsConfig(uri *url.URL, opts fetch.RequestOptions) *tls.Config {
	if o.opts.TLSConfig != nil {
		conf := o.opts.TLSConfig.Clone()
		if conf.ServerName == "" {
			conf.ServerName = uri.Hostname()
		}
		return conf
	}

	return &tls.Config{
		ServerName:         uri.Hostname(),
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
}

// managedFields are written by the opener itself.
var managedFields = []string{"Host", "Connection", "Content-Length", "Transfer-Encoding"}

func requestFields(uri *url.URL, opts fetch.RequestOptions) []http.Field {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	header := opts.Header.Clone()
	for _, name := range managedFields {
		header.Del(name)
	}
	if _, ok := header.Get("User-Agent"); !ok {
		header.Set("User-Agent", userAgent)
	}
	if len(opts.AcceptEncoding) > 0 {
		codings := make([]string, 0, len(opts.AcceptEncoding))
		for _, coding := range opts.AcceptEncoding {
			codings = append(codings, string(coding))
		}
		header.Set("Accept-Encoding", strings.Join(codings, ", "))
	}

	fields := []http.Field{
		{Name: []byte("Host"), Value: []byte(uri.Host)},
		{Name: []byte("Connection"), Value: []byte("close")},
	}
	return append(fields, header.ToRawFields()...)
}

func (o *Opener) frameBody(uri *url.URL, r io.Reader, framing semantic.Framing) io.Reader {
	switch framing.Kind {
	case semantic.FramingNone:
		return strings.NewReader("")
	case semantic.FramingChunked:
		return &trailerLogger{ChunkedReader: transfer.NewChunkedReader(r), logger: o.logger, uri: uri}
	case semantic.FramingLength:
		return iolib.ExactReader(r, framing.ContentLength)
	default:
		return r
	}
}

// trailerLogger reports the trailer section once the chunked content is fully read.
type trailerLogger struct {
	*transfer.ChunkedReader
	logger zerolog.Logger
	uri    *url.URL
	logged bool
}

func (tl *trailerLogger) Read(b []byte) (int, error) {
	n, err := tl.ChunkedReader.Read(b)
	if errors.Is(err, io.EOF) && !tl.logged {
		tl.logged = true
		if trailers := tl.Trailers(); len(trailers) > 0 {
			arr := zerolog.Arr()
			for _, line := range trailers {
				arr = arr.Str(string(line))
			}
			tl.logger.Debug().
				Str("uri", tl.uri.String()).
				Array("trailers", arr).
				Msg("Received trailer section")
		}
	}
	return n, err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
