package web

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/samber/mo"

	"github.com/jinford/faq-rag/internal/core/ingestion"
	"github.com/jinford/faq-rag/internal/core/knowledge"
)

// excludedElements はセレクタ未指定時に本文から除外する要素
const excludedElements = "script, style, nav, footer, header"

// Extractor は goquery で HTML から本文とタイトルを抽出する
type Extractor struct{}

// NewExtractor は新しい Extractor を作成する
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract は HTML から正規化済みの本文とタイトルを抽出する
func (e *Extractor) Extract(html string, selector mo.Option[string], sourceURL string) (*ingestion.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, knowledge.ValidationError("extract", "failed to parse HTML: "+err.Error())
	}

	title := normalizeWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = sourceURL
	}

	var raw string
	if sel, ok := selector.Get(); ok && strings.TrimSpace(sel) != "" {
		matcher, err := compileSelector(sel)
		if err != nil {
			return nil, err
		}
		raw = doc.FindMatcher(matcher).Text()
	} else {
		doc.Find(excludedElements).Remove()
		raw = doc.Find("body").Text()
	}

	content := normalizeWhitespace(raw)
	if content == "" {
		return nil, knowledge.EmptyContentError("extract", "No content extracted from page")
	}

	return &ingestion.Extraction{
		Content: content,
		Title:   title,
	}, nil
}

// ValidateSelector はセレクタをコンパイルできるか確認する
func (e *Extractor) ValidateSelector(selector string) error {
	_, err := compileSelector(selector)
	return err
}

func compileSelector(selector string) (cascadia.Sel, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, knowledge.ValidationError("extract", "invalid selector: "+err.Error())
	}
	return matcher, nil
}

// normalizeWhitespace は連続する空白を1つのスペースにまとめ前後を除去する
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// インターフェース実装の確認
var _ ingestion.ContentExtractor = (*Extractor)(nil)
