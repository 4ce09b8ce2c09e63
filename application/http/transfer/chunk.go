package transfer

import (
	"bufio"
	"bytes"
	"io"
	"math/big"

	"resource-fetch/application/util/rule"
	bytesutil "resource-fetch/util/bytes"

	"github.com/pkg/errors"
)

// maxChunkLineLength bounds chunk-size lines and trailer lines.
const maxChunkLineLength = 16 << 10

var (
	ErrInvalidChunkSize = errors.New("chunk size is invalid")
	ErrMissingChunkCRLF = errors.New("CRLF delimiter not found after chunk data")
)

// ChunkedReader decodes the chunked transfer coding into a byte stream.
// Chunk extensions are skipped, trailer lines are kept raw.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
type ChunkedReader struct {
	br *bufio.Reader

	remain   uint // left in the current chunk
	inChunk  bool
	done     bool
	trailers [][]byte
}

var _ io.Reader = (*ChunkedReader)(nil)

func NewChunkedReader(r io.Reader) *ChunkedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &ChunkedReader{br: br}
}

// Trailers returns the raw trailer lines. They are available after Read returned io.EOF.
func (cr *ChunkedReader) Trailers() [][]byte { return cr.trailers }

func (cr *ChunkedReader) Read(b []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if !cr.inChunk {
		size, err := cr.decodeChunkHeader()
		if err != nil {
			return 0, errors.Wrap(err, "decoding chunk")
		}

		if size == 0 {
			// Last chunk.
			if err := cr.decodeTrailers(); err != nil {
				return 0, errors.Wrap(err, "decoding trailer")
			}
			cr.done = true
			return 0, io.EOF
		}

		cr.remain, cr.inChunk = size, true
	}

	if len(b) == 0 {
		return 0, nil
	}

	if uint(len(b)) > cr.remain {
		b = b[:cr.remain]
	}

	n, err := cr.br.Read(b)
	cr.remain -= uint(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return n, errors.Wrap(err, "reading chunk data")
	}

	if cr.remain == 0 {
		if err := cr.consumeDelimiter(); err != nil {
			return n, err
		}
		cr.inChunk = false
	}

	return n, nil
}

func (cr *ChunkedReader) decodeChunkHeader() (uint, error) {
	line, err := readLine(cr.br)
	if err != nil {
		return 0, err
	}

	sizePart, _, _ := bytes.Cut(line, []byte{';'})

	size, err := decodeChunkSize(bytes.TrimFunc(sizePart, rule.IsWhitespace))
	if err != nil {
		return 0, errors.Wrap(err, "decoding chunk size")
	}

	return size, nil
}

func (cr *ChunkedReader) consumeDelimiter() error {
	line, err := readLine(cr.br)
	if err != nil {
		return errors.Wrap(err, "reading chunk delimiter")
	}

	if len(line) != 0 {
		return ErrMissingChunkCRLF
	}

	return nil
}

func decodeChunkSize(b []byte) (uint, error) {
	n, ok := new(big.Int).SetString(string(b), 16)
	if !ok || n.Sign() < 0 {
		return 0, errors.Wrapf(ErrInvalidChunkSize, "failed to decode hex: %q", string(b))
	}

	if n.BitLen() > 64 {
		return 0, errors.Wrapf(ErrInvalidChunkSize, "larger than 64bit: %dbits", n.BitLen())
	}

	return uint(n.Uint64()), nil
}

func (cr *ChunkedReader) decodeTrailers() error {
	trailers := make([][]byte, 0)
	for {
		line, err := readLine(cr.br)
		if err != nil {
			return errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			break
		}

		trailers = append(trailers, line)
	}

	cr.trailers = trailers
	return nil
}

// readLine reads until LF and cuts the line terminator, accepting a sole LF.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := bytesutil.ReadUntilLimit(br, []byte{rule.LF}, maxChunkLineLength)
	if err != nil {
		return nil, err
	}

	line = line[:len(line)-1]
	return bytes.TrimSuffix(line, []byte{rule.CR}), nil
}
