// Package compression holds the codecs used for stored version content.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

const (
	NameZstd = "zstd"
	NameGzip = "gzip"
	NameNone = "none"
)

// ByName returns the compressor for a configured name. An empty name selects zstd.
func ByName(name string) (Compressor, error) {
	switch name {
	case "", NameZstd:
		return ZstdCompressor{}, nil
	case NameGzip:
		return GzipCompressor{}, nil
	case NameNone:
		return NoopCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// Name reports the name a compressor is stored under.
func Name(c Compressor) string {
	switch c.(type) {
	case GzipCompressor:
		return NameGzip
	case NoopCompressor:
		return NameNone
	default:
		return NameZstd
	}
}

type NoopCompressor struct{}

func (NoopCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoopCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
