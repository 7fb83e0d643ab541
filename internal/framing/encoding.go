package framing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Reused across calls, both are safe for concurrent use
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("framing: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("framing: zstd decoder initialization failed: " + err.Error())
	}
}

func ParseEncoding(name string) (encoding Encoding, err error) {
	switch name {
	case "", "none", string(Identity):
		encoding = Identity
	case string(Gzip), string(Zstd), string(LZ4):
		encoding = Encoding(name)
	default:
		err = fmt.Errorf("unknown compression %q (expected none, gzip, zstd or lz4)", name)
	}
	return
}

// File name suffix for objects stored with this encoding
func (encoding Encoding) Extension() string {
	switch encoding {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	}
	return ""
}

func encode(data []byte, encoding Encoding) (encoded []byte, err error) {
	switch encoding {
	case Identity:
		encoded = data
	case Gzip:
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err = writer.Write(data); err != nil {
			err = fmt.Errorf("gzip compress: %w", err)
			return
		}
		if err = writer.Close(); err != nil {
			err = fmt.Errorf("gzip compress: %w", err)
			return
		}
		encoded = buf.Bytes()
	case Zstd:
		encoded = zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	case LZ4:
		// Frame format, receivers do not know the uncompressed size
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err = writer.Write(data); err != nil {
			err = fmt.Errorf("lz4 compress: %w", err)
			return
		}
		if err = writer.Close(); err != nil {
			err = fmt.Errorf("lz4 compress: %w", err)
			return
		}
		encoded = buf.Bytes()
	default:
		err = fmt.Errorf("unsupported encoding %q", encoding)
	}
	return
}

// Reverses encode
func Decode(data []byte, encoding Encoding) (decoded []byte, err error) {
	switch encoding {
	case Identity:
		decoded = data
	case Gzip:
		var reader *gzip.Reader
		reader, err = gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("gzip decompress: %w", err)
			return
		}
		defer reader.Close()
		decoded, err = io.ReadAll(reader)
		if err != nil {
			err = fmt.Errorf("gzip decompress: %w", err)
		}
	case Zstd:
		decoded, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			err = fmt.Errorf("zstd decompress: %w", err)
		}
	case LZ4:
		decoded, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			err = fmt.Errorf("lz4 decompress: %w", err)
		}
	default:
		err = fmt.Errorf("unsupported encoding %q", encoding)
	}
	return
}
