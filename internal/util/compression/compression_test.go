package compression

import (
	"bytes"
	"testing"
)

func TestCompressors(t *testing.T) {
	payload := bytes.Repeat([]byte(`[{"_type":"block","children":[{"text":"hello"}]}]`), 20)

	for _, name := range []string{NameZstd, NameGzip, NameNone} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			if err != nil {
				t.Fatalf("ByName(%q) failed: %v", name, err)
			}
			if got := Name(c); got != name {
				t.Errorf("Name() = %q, want %q", got, name)
			}

			compressed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			out, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(out, payload) {
				t.Error("Decompressed payload differs from input")
			}
		})
	}
}

func TestByNameDefaultsAndErrors(t *testing.T) {
	c, err := ByName("")
	if err != nil {
		t.Fatalf("Expected default compressor, got error: %v", err)
	}
	if _, ok := c.(ZstdCompressor); !ok {
		t.Errorf("Expected zstd by default, got %T", c)
	}

	if _, err := ByName("lz4"); err == nil {
		t.Error("Expected error for unknown compression")
	}
}
