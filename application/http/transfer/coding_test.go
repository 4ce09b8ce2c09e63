package transfer

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plain = "The quick brown fox jumps over the lazy dog."

func compress(t *testing.T, newWriter func(w io.Writer) io.WriteCloser) []byte {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	w := newWriter(buf)
	_, err := w.Write([]byte(plain))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestDecompress(t *testing.T) {
	gzipped := compress(t, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
	zlibbed := compress(t, func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) })
	deflated := compress(t, func(w io.Writer) io.WriteCloser {
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		require.NoError(t, err)
		return fw
	})

	testcases := []struct {
		desc    string
		input   []byte
		coding  Coding
		want    string
		wantErr error
	}{
		{desc: "identity", input: []byte(plain), coding: CodingIdentity, want: plain},
		{desc: "gzip", input: gzipped, coding: CodingGzip, want: plain},
		{desc: "x-gzip", input: gzipped, coding: CodingXGzip, want: plain},
		{desc: "deflate with zlib wrapper", input: zlibbed, coding: CodingDeflate, want: plain},
		{desc: "raw deflate", input: deflated, coding: CodingDeflate, want: plain},
		{desc: "empty gzip body", input: nil, coding: CodingGzip, want: ""},
		{desc: "unsupported", input: []byte(plain), coding: "br", wantErr: ErrUnsupportedCoding},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			rc, err := Decompress(bytes.NewReader(tc.input), tc.coding)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			defer rc.Close()

			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))
		})
	}
}

func TestDecompressCorruptGzip(t *testing.T) {
	_, err := Decompress(bytes.NewReader([]byte("not gzip at all")), CodingGzip)
	assert.Error(t, err)
}

func TestParseCoding(t *testing.T) {
	assert.Equal(t, CodingIdentity, ParseCoding(""))
	assert.Equal(t, CodingGzip, ParseCoding(" GZIP "))
	assert.True(t, ParseCoding("x-gzip").Supported())
	assert.False(t, ParseCoding("br").Supported())
}
