package indexing

import (
	"regexp"
	"strings"
)

var markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)

// StripMarkdownLinks removes markdown link syntax, keeping only the text
// Example: "[Text](url)" -> "Text"
func StripMarkdownLinks(text string) string {
	return markdownLinkRegex.ReplaceAllString(text, "$1")
}

// EstimateTokens estimates the token count for a text string
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// ExtractKeywords extracts key terms from a section heading and its content
func ExtractKeywords(title, content string) []string {
	// Simple keyword extraction: significant words from the heading
	// and the first few lines of content
	words := strings.Fields(strings.ToLower(title))

	contentPreview := content
	if len(content) > 200 {
		contentPreview = content[:200]
	}
	words = append(words, strings.Fields(strings.ToLower(contentPreview))...)

	// Filter out common stop words and short words
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"but": true, "in": true, "on": true, "at": true, "to": true,
		"for": true, "of": true, "as": true, "by": true, "is": true,
		"it": true, "be": true, "with": true, "from": true, "that": true,
	}

	keywordMap := make(map[string]bool)
	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
		})
		if len(word) > 2 && !stopWords[word] {
			keywordMap[word] = true
		}
	}

	keywords := make([]string, 0, len(keywordMap))
	for word := range keywordMap {
		keywords = append(keywords, word)
	}

	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	return keywords
}

// Slug creates an identifier fragment from text
// Example: "Problem-Solving Exercises" -> "problem-solving-exercises"
func Slug(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return slug
}

// EnrichMetadata adds breadcrumb, keywords and token count to a chunk
func EnrichMetadata(chunk *BookChunk) {
	var breadcrumb []string
	if chunk.Chapter != "" {
		breadcrumb = append(breadcrumb, chunk.Chapter)
	}
	if chunk.Section != "" && chunk.Section != chunk.Chapter {
		breadcrumb = append(breadcrumb, chunk.Section)
	}
	if len(breadcrumb) > 0 {
		chunk.Breadcrumb = strings.Join(breadcrumb, " > ")
	}

	chunk.Keywords = ExtractKeywords(chunk.Section, chunk.Content)
	chunk.TokenCount = EstimateTokens(chunk.Content)
}
