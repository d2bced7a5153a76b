// Package util provides content hashing and front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"

	"github.com/mmarkdown/mmark/v2/mast"
)

// FrontMatter is an mmark title block extended with the post metadata
// fields the ledger snapshots.
type FrontMatter struct {
	*mast.TitleData
	Excerpt string   `toml:"excerpt"`
	Tags    []string `toml:"tags"`
	Slug    string   `toml:"slug"`

	// Consumed is the number of bytes of the input taken by the block.
	Consumed int `toml:"-"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

var delimiter = []byte("%%%")

// GetFrontMatter parses a leading %%%-delimited TOML block. Leading blank
// lines are skipped; anything else before the block means there is none.
func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	skipped := len(md)
	md = bytes.TrimLeft(md, "\n \t\r")
	skipped -= len(md)

	if !bytes.HasPrefix(md, delimiter) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	rest := md[len(delimiter):]
	second := bytes.Index(rest, delimiter)
	if second == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	body := rest[:second]
	end := len(delimiter) + second + len(delimiter)
	if end < len(md) && md[end] == '\n' {
		end++
	}

	info := &FrontMatter{
		TitleData: &mast.TitleData{},
	}
	if _, err := toml.Decode(string(body), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = "en"
	}
	info.Consumed = skipped + end

	return info, nil
}

type frontMatterBlock struct {
	Title   string    `toml:"title"`
	Date    time.Time `toml:"date"`
	Excerpt string    `toml:"excerpt,omitempty"`
	Tags    []string  `toml:"tags,omitempty"`
	Slug    string    `toml:"slug,omitempty"`
}

// EncodeFrontMatter writes the %%%-delimited block GetFrontMatter reads.
func EncodeFrontMatter(title, excerpt string, tags []string, slug string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(delimiter)
	buf.WriteByte('\n')
	err := toml.NewEncoder(&buf).Encode(frontMatterBlock{
		Title:   title,
		Date:    date.UTC(),
		Excerpt: excerpt,
		Tags:    tags,
		Slug:    slug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	buf.Write(delimiter)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
