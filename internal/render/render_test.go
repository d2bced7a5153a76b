package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/debemdeboas/archive-ledger/internal/cache"
	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

func setupTest() {
	cache.ClearRenderedMarkdownCache()
}

func assertCacheEntry(t *testing.T, engine, contentHash, syntaxTheme string, expectedHTML []byte, expectedExtra any) {
	t.Helper()
	cached, found := cache.GetRenderedMarkdown(engine+":"+contentHash, syntaxTheme)
	if !found {
		t.Errorf("Expected content to be cached for hash:%s theme:%s", contentHash, syntaxTheme)
		return
	}
	if !bytes.Equal(cached.HTML, expectedHTML) {
		t.Errorf("Cached HTML mismatch. Expected %q, got %q", string(expectedHTML), string(cached.HTML))
	}
	if cached.Extra != expectedExtra {
		t.Errorf("Cached extra data mismatch. Expected %v, got %v", expectedExtra, cached.Extra)
	}
}

func TestRenderMarkdownCached(t *testing.T) {
	tests := []struct {
		name        string
		markdown    []byte
		contentHash string
		engine      string
		syntaxTheme string
		expectHTML  bool
	}{
		{
			name:        "basic markdown",
			markdown:    []byte("# Test Header\n\nSome content with `code`"),
			contentHash: "hash-1",
			engine:      EngineClassic,
			syntaxTheme: "github",
			expectHTML:  true,
		},
		{
			name:        "empty content",
			markdown:    []byte(""),
			contentHash: "hash-empty",
			engine:      EngineClassic,
			syntaxTheme: "github",
		},
		{
			name:        "code block with syntax highlighting",
			markdown:    []byte("```go\nfunc main() {\n    fmt.Println(\"Hello\")\n}\n```"),
			contentHash: "hash-code",
			engine:      EngineClassic,
			syntaxTheme: "monokai",
			expectHTML:  true,
		},
		{
			name:        "mmark engine",
			markdown:    []byte("# Mmark\n\nParagraph with **bold**"),
			contentHash: "hash-mmark",
			engine:      EngineMmark,
			syntaxTheme: "github",
			expectHTML:  true,
		},
	}

	setupTest()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html1, extra1 := RenderMarkdownCached(tt.markdown, tt.contentHash, tt.engine, tt.syntaxTheme)

			if tt.expectHTML && len(html1) == 0 {
				t.Error("Expected rendered HTML, got empty")
			}

			assertCacheEntry(t, tt.engine, tt.contentHash, tt.syntaxTheme, html1, extra1)

			html2, extra2 := RenderMarkdownCached(tt.markdown, tt.contentHash, tt.engine, tt.syntaxTheme)
			if !bytes.Equal(html1, html2) {
				t.Error("Cache hit should return identical HTML")
			}
			if extra1 != extra2 {
				t.Error("Cache hit should return identical extra data")
			}
		})
	}
}

func TestRawHTMLIsSkipped(t *testing.T) {
	html := RenderMarkdownClassic([]byte("Hello <script>alert('xss')</script>"), "github")
	if bytes.Contains(html, []byte("<script>")) {
		t.Errorf("Expected raw HTML to be dropped, got %s", html)
	}
}

func TestCacheKeyUniqueness(t *testing.T) {
	setupTest()

	tests := []struct {
		contentHash string
		syntaxTheme string
		markdown    []byte
	}{
		{"hash-1", "github", []byte("# Test")},
		{"hash-1", "monokai", []byte("# Test")},
		{"hash-2", "github", []byte("# Different")},
		{"hash-2", "monokai", []byte("# Different")},
	}

	for _, tt := range tests {
		RenderMarkdownCached(tt.markdown, tt.contentHash, EngineClassic, tt.syntaxTheme)
	}

	seen := map[*cache.RenderedContent]bool{}
	for _, tt := range tests {
		cached, found := cache.GetRenderedMarkdown(EngineClassic+":"+tt.contentHash, tt.syntaxTheme)
		if !found || cached == nil {
			t.Fatalf("Expected cache entry for %s/%s", tt.contentHash, tt.syntaxTheme)
		}
		if seen[cached] {
			t.Error("All cache entries should be separate objects")
		}
		seen[cached] = true
	}
}

func TestCacheConcurrency(t *testing.T) {
	setupTest()

	const numGoroutines = 50
	const numIterations = 10

	markdown := []byte("# Concurrent Test\n\nContent with `code`")

	var wg sync.WaitGroup
	results := make(chan []byte, numGoroutines*numIterations)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				html, _ := RenderMarkdownCached(markdown, "concurrent-hash", EngineClassic, "github")
				results <- html
			}
		}()
	}

	wg.Wait()
	close(results)

	var first []byte
	for result := range results {
		if first == nil {
			first = result
		}
		if !bytes.Equal(result, first) {
			t.Fatal("Concurrent renders returned different HTML")
		}
	}
}

func TestEdgeCases(t *testing.T) {
	setupTest()

	tests := []struct {
		name     string
		markdown []byte
	}{
		{"extremely long content", []byte(strings.Repeat("# Header\n\nContent paragraph.\n\n", 1000))},
		{"mixed line endings", []byte("# Title\r\n\r\nContent\r\nMore content\n\nEnd")},
		{"nested code blocks", []byte("```markdown\n# Header\n```go\nfunc main() {}\n```\n```")},
		{"unicode content", []byte("# 测试 🚀\n\nContent with emoji 😀 and unicode ñáéíóú")},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := fmt.Sprintf("edge-%d", i)
			html, extra := RenderMarkdownCached(tt.markdown, hash, EngineClassic, "github")
			if len(html) == 0 {
				t.Error("Expected HTML output")
			}
			assertCacheEntry(t, EngineClassic, hash, "github", html, extra)
		})
	}
}

func sampleVersion() *model.Version {
	return &model.Version{
		ID:     "v1",
		Number: 1,
		Content: document.Document{{
			Type:     document.TypeBlock,
			Style:    document.StyleNormal,
			Children: []document.Span{{Text: "Body text"}},
		}},
		Metadata: model.Metadata{Title: "A Title"},
	}
}

func TestVersionMarkdown(t *testing.T) {
	if got, want := VersionMarkdown(sampleVersion()), "# A Title\n\nBody text"; got != want {
		t.Errorf("VersionMarkdown = %q, want %q", got, want)
	}

	untitled := sampleVersion()
	untitled.Title = ""
	if got := VersionMarkdown(untitled); got != "Body text" {
		t.Errorf("Expected no heading without a title, got %q", got)
	}
}

func TestRendererVersion(t *testing.T) {
	setupTest()
	r := NewRenderer("unknown", "github")
	if r.Engine != EngineClassic {
		t.Errorf("Expected unknown engines to fall back to classic, got %q", r.Engine)
	}

	html := string(r.Version(sampleVersion(), ""))
	if !strings.Contains(html, "A Title") || !strings.Contains(html, "<p>Body text</p>") {
		t.Errorf("Unexpected preview: %s", html)
	}
}

func TestRendererComparison(t *testing.T) {
	r := NewRenderer(EngineClassic, "github")
	c := &diff.Comparison{
		From: model.Summary{Number: 1},
		To:   model.Summary{Number: 2},
		Content: []diff.Group{
			{Type: diff.Removed, Lines: []string{"old <b>"}},
			{Type: diff.Added, Lines: []string{"new"}},
		},
	}

	out := string(r.Comparison(c, ""))
	if !strings.Contains(out, "version-diff") {
		t.Errorf("Expected diff wrapper, got %s", out)
	}
	if strings.Contains(out, "<b>") {
		t.Errorf("Diff text must be escaped, got %s", out)
	}
}

func TestSyntaxCSS(t *testing.T) {
	css := SyntaxCSS("github")
	if !strings.Contains(string(css), ".chroma") {
		t.Errorf("Expected chroma CSS, got %q", css)
	}
	if cached, ok := cache.GetSyntaxCSS("github"); !ok || cached != css {
		t.Error("Expected CSS to be cached")
	}
}

func BenchmarkRenderMarkdownCached(b *testing.B) {
	cache.ClearRenderedMarkdownCache()
	markdown := []byte("# Performance Test\n\nSome **bold** text.\n\n```go\nfunc main() {}\n```")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderMarkdownCached(markdown, "perf-test-hash", EngineClassic, "github")
	}
}

func BenchmarkRenderMarkdownUncached(b *testing.B) {
	markdown := []byte("# Performance Test\n\nSome **bold** text.\n\n```go\nfunc main() {}\n```")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderMarkdown(markdown, EngineClassic, "github")
	}
}
