package indexing

import (
	"fmt"
	"strings"

	"github.com/dartbook/mcp-server/internal/book"
)

// ChunkBook turns every chapter of a loaded corpus into search chunks.
func ChunkBook(b *book.Book) []BookChunk {
	var chunks []BookChunk
	for i := range b.Chapters {
		chunks = append(chunks, ChunkChapter(&b.Chapters[i])...)
	}
	return chunks
}

// ChunkChapter splits one chapter into chunks: a chunk per canonical section,
// with the exercises and solutions sections further split per exercise so that
// difficulty labels stay attached to their prompt. Oversized section bodies
// subdivide at paragraph boundaries with overlap.
func ChunkChapter(c *book.Chapter) []BookChunk {
	var chunks []BookChunk
	chapterID := Slug(c.Title)
	if chapterID == "" {
		chapterID = Slug(c.Path)
	}

	for i := range c.Sections {
		sec := &c.Sections[i]
		switch sec.Kind {
		case book.KindExercises:
			chunks = append(chunks, chunkExercises(c, sec, chapterID)...)
		case book.KindSolutions:
			chunks = append(chunks, chunkSolutions(c, sec, chapterID)...)
		default:
			chunk := BookChunk{
				ID:      fmt.Sprintf("%s_%s", chapterID, Slug(sec.Heading)),
				Path:    c.Path,
				Chapter: c.Title,
				Section: StripMarkdownLinks(sec.Heading),
				Content: sec.Body,
			}
			chunks = append(chunks, SubdivideChunk(chunk)...)
		}
	}
	return chunks
}

// chunkExercises emits one chunk per exercise so its difficulty is indexed.
func chunkExercises(c *book.Chapter, sec *book.Section, chapterID string) []BookChunk {
	if len(c.Exercises) == 0 {
		chunk := BookChunk{
			ID:      fmt.Sprintf("%s_%s", chapterID, Slug(sec.Heading)),
			Path:    c.Path,
			Chapter: c.Title,
			Section: StripMarkdownLinks(sec.Heading),
			Content: sec.Body,
		}
		return SubdivideChunk(chunk)
	}

	chunks := make([]BookChunk, 0, len(c.Exercises))
	for _, ex := range c.Exercises {
		content := ex.Prompt
		if ex.Title != "" {
			content = ex.Title + "\n\n" + content
		}
		chunk := BookChunk{
			ID:         fmt.Sprintf("%s_exercise_%d", chapterID, ex.Position),
			Path:       c.Path,
			Chapter:    c.Title,
			Section:    fmt.Sprintf("Exercise %d", ex.Position),
			Difficulty: string(ex.Difficulty),
			Content:    content,
		}
		EnrichMetadata(&chunk)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// chunkSolutions emits one chunk per solution, carrying the paired exercise's
// difficulty when the pairing holds.
func chunkSolutions(c *book.Chapter, sec *book.Section, chapterID string) []BookChunk {
	if len(c.Solutions) == 0 {
		chunk := BookChunk{
			ID:      fmt.Sprintf("%s_%s", chapterID, Slug(sec.Heading)),
			Path:    c.Path,
			Chapter: c.Title,
			Section: StripMarkdownLinks(sec.Heading),
			Content: sec.Body,
		}
		return SubdivideChunk(chunk)
	}

	chunks := make([]BookChunk, 0, len(c.Solutions))
	for i, sol := range c.Solutions {
		var content strings.Builder
		if sol.Title != "" {
			content.WriteString(sol.Title)
			content.WriteString("\n\n")
		}
		for _, block := range sol.Code {
			content.WriteString(block.Code)
			content.WriteString("\n\n")
		}
		content.WriteString(sol.Rationale)

		chunk := BookChunk{
			ID:      fmt.Sprintf("%s_solution_%d", chapterID, sol.Position),
			Path:    c.Path,
			Chapter: c.Title,
			Section: fmt.Sprintf("Solution %d", sol.Position),
			Content: strings.TrimSpace(content.String()),
		}
		if i < len(c.Exercises) {
			chunk.Difficulty = string(c.Exercises[i].Difficulty)
		}
		EnrichMetadata(&chunk)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// SubdivideChunk splits a large chunk into smaller ones with overlap.
// Small chunks come back as-is with enriched metadata.
func SubdivideChunk(chunk BookChunk) []BookChunk {
	if EstimateTokens(chunk.Content) <= MaxChunkTokens {
		EnrichMetadata(&chunk)
		return []BookChunk{chunk}
	}

	paragraphs := strings.Split(chunk.Content, "\n\n")
	if len(paragraphs) <= 1 {
		// No paragraph breaks, fall back to sentence boundaries
		paragraphs = strings.Split(chunk.Content, ". ")
		for i := range paragraphs {
			if i < len(paragraphs)-1 {
				paragraphs[i] += "."
			}
		}
	}

	maxChars := MaxChunkTokens * CharsPerToken
	overlapChars := OverlapTokens * CharsPerToken

	var subchunks []BookChunk
	var current strings.Builder
	var previous string
	subIndex := 0

	emit := func(content string) {
		if previous != "" && len(previous) > overlapChars {
			content = previous[len(previous)-overlapChars:] + "\n\n" + content
		}
		sub := BookChunk{
			ID:         fmt.Sprintf("%s_part%d", chunk.ID, subIndex+1),
			Path:       chunk.Path,
			Chapter:    chunk.Chapter,
			Section:    chunk.Section,
			Difficulty: chunk.Difficulty,
			Content:    content,
		}
		if subIndex > 0 {
			sub.Section = fmt.Sprintf("%s (part %d)", chunk.Section, subIndex+1)
		}
		EnrichMetadata(&sub)
		subchunks = append(subchunks, sub)
		subIndex++
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// A single paragraph past the limit gets force-split on word boundaries.
		if EstimateTokens(para) > MaxChunkTokens {
			if current.Len() > 0 {
				emit(current.String())
				previous = current.String()
				current.Reset()
			}
			for _, part := range ForceSplitText(para, maxChars, overlapChars) {
				emit(part)
				previous = part
			}
			continue
		}

		test := current.String()
		if test != "" {
			test += "\n\n" + para
		} else {
			test = para
		}
		if EstimateTokens(test) > TargetChunkTokens && current.Len() > 0 {
			emit(current.String())
			previous = current.String()
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if current.Len() > 0 {
		emit(current.String())
	}

	if len(subchunks) == 0 {
		EnrichMetadata(&chunk)
		return []BookChunk{chunk}
	}
	return subchunks
}

// ForceSplitText splits text by character count at word boundaries
func ForceSplitText(text string, maxChars, overlapChars int) []string {
	var parts []string

	for len(text) > 0 {
		chunkSize := maxChars
		if len(text) < chunkSize {
			chunkSize = len(text)
		}

		// Try to break at a word boundary
		if chunkSize < len(text) {
			for i := chunkSize; i > chunkSize-100 && i > 0; i-- {
				if text[i] == ' ' || text[i] == '\n' {
					chunkSize = i
					break
				}
			}
		}

		parts = append(parts, text[:chunkSize])

		// Move forward with overlap
		if chunkSize+overlapChars < len(text) {
			text = text[chunkSize-overlapChars:]
		} else {
			text = text[chunkSize:]
		}
	}

	return parts
}
