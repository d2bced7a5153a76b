package compression

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Shared by every store. EncodeAll and DecodeAll are safe for concurrent use.
var zstdCodec = sync.OnceValues(func() (*zstdPair, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdPair{enc: enc, dec: dec}, nil
})

type zstdPair struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

type ZstdCompressor struct{}

func (ZstdCompressor) Compress(data []byte) ([]byte, error) {
	codec, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	return codec.enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	codec, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	return codec.dec.DecodeAll(data, nil)
}
