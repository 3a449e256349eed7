package ask

import (
	"strings"

	"github.com/jinford/faq-rag/internal/core/knowledge"
)

const (
	// ExcerptChars はコンテキストに含める本文の先頭文字数
	ExcerptChars = 500

	contextSeparator = "\n\n---\n\n"
	noContextNotice  = "(No relevant documents were found in the knowledge base.)"

	// FallbackAnswer は LLM が空の応答を返した場合の回答
	FallbackAnswer = "I apologize, but I could not generate a response."
)

// BuildContext は検索結果からコンテキストを構築する
// 結果の順序（類似度降順）をそのまま保持する
func BuildContext(results []*knowledge.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var sb strings.Builder
		sb.WriteString("Title: ")
		sb.WriteString(valueOr(r.Title, "(untitled)"))
		sb.WriteString("\nURL: ")
		sb.WriteString(valueOr(r.URL, "(no url)"))
		sb.WriteString("\nContent: ")
		sb.WriteString(excerpt(r.Content, ExcerptChars))
		sb.WriteString("...")
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, contextSeparator)
}

// BuildSystemPrompt はコンテキストを埋め込んだシステムプロンプトを構築する
func BuildSystemPrompt(context string) string {
	if context == "" {
		context = noContextNotice
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful FAQ assistant. Use the following context from the knowledge base to answer the user's question. ")
	sb.WriteString("If the context doesn't contain relevant information, say so politely and try to be helpful anyway.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Answer based on the provided context when possible\n")
	sb.WriteString("- Be concise and helpful\n")
	sb.WriteString("- If you reference information, mention which document it came from\n")
	sb.WriteString("- If the context doesn't contain the answer, acknowledge this and provide general guidance if appropriate")
	return sb.String()
}

func excerpt(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func valueOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
