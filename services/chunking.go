package services

import (
	"regexp"
	"strings"

	"rag-pipeline-service/models"
)

// Chunker splits extracted text into overlapping, position-addressable
// segments under a selectable strategy.
type Chunker struct {
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// NewChunker creates a chunker.
func NewChunker() *Chunker {
	return &Chunker{
		sentenceRegex:  regexp.MustCompile(`[.!?]+(\s+|$)`),
		paragraphRegex: regexp.MustCompile(`\n\s*\n+`),
	}
}

func validateChunkingConfig(cfg models.ChunkingConfig) error {
	if cfg.ChunkSize < models.MinChunkSizeLimit || cfg.ChunkSize > models.MaxChunkSizeLimit {
		return Errorf(KindValidation, "chunk_size must be between %d and %d, got %d",
			models.MinChunkSizeLimit, models.MaxChunkSizeLimit, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return Errorf(KindValidation, "chunk_overlap must not be negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Errorf(KindValidation, "chunk_overlap %d must be smaller than chunk_size %d",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	switch cfg.Strategy {
	case models.StrategyFixed, models.StrategySentence, models.StrategyParagraph, models.StrategySemantic:
		return nil
	default:
		return Errorf(KindValidation, "unknown chunking strategy %q", cfg.Strategy)
	}
}

// Chunk splits text into chunks owned by documentID. Validation failures
// produce no chunks.
func (c *Chunker) Chunk(text, documentID string, cfg models.ChunkingConfig) (*models.ChunkingResult, error) {
	if err := validateChunkingConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, Errorf(KindValidation, "text is empty, nothing to chunk")
	}

	var chunks []models.Chunk
	switch cfg.Strategy {
	case models.StrategyFixed:
		chunks = c.chunkFixed(text, documentID, cfg)
	case models.StrategyParagraph:
		chunks = c.chunkParagraph(text, documentID, cfg)
	default:
		// sentence, and semantic as its alias
		chunks = c.chunkSentence(text, documentID, cfg)
	}

	result := &models.ChunkingResult{
		Chunks:      chunks,
		TotalChunks: len(chunks),
	}
	if len(chunks) > 0 {
		total := 0
		minSize := len(chunks[0].Text)
		maxSize := minSize
		for _, ch := range chunks {
			n := len(ch.Text)
			total += n
			if n < minSize {
				minSize = n
			}
			if n > maxSize {
				maxSize = n
			}
		}
		result.AverageChunkSize = total / len(chunks)
		result.Stats = models.ChunkingStats{
			MinChunkSize: minSize,
			MaxChunkSize: maxSize,
			TotalChars:   total,
		}
	}
	return result, nil
}

// chunkFixed slides a window of exactly chunkSize characters, advancing by
// chunkSize-chunkOverlap per step. The final window may be shorter.
func (c *Chunker) chunkFixed(text, documentID string, cfg models.ChunkingConfig) []models.Chunk {
	runes := []rune(text)
	step := cfg.ChunkSize - cfg.ChunkOverlap

	var chunks []models.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			ID:         models.ChunkID(documentID, len(chunks)),
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
			StartChar:  start,
			EndChar:    end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// chunkSentence accumulates sentences until the next one would overflow
// chunkSize and the accumulated length already meets minChunkSize. On flush,
// the tail sentences fitting within chunkOverlap characters seed the next
// chunk.
func (c *Chunker) chunkSentence(text, documentID string, cfg models.ChunkingConfig) []models.Chunk {
	sentences := c.splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.Chunk
	var current []string
	currentLen := 0
	offset := 0

	flush := func(carryOverlap bool) {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, " ")
		chunks = append(chunks, models.Chunk{
			ID:         models.ChunkID(documentID, len(chunks)),
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       chunkText,
			StartChar:  offset,
			EndChar:    offset + len(chunkText),
		})
		if !carryOverlap {
			return
		}
		retained, retainedLen := tailWithinBudget(current, cfg.ChunkOverlap)
		offset += len(chunkText) - retainedLen
		current = retained
		currentLen = retainedLen
	}

	for _, sentence := range sentences {
		addLen := len(sentence)
		if currentLen > 0 {
			addLen++ // joining space
		}
		if currentLen > 0 && currentLen+addLen > cfg.ChunkSize && currentLen >= cfg.MinChunkSize {
			flush(true)
		}
		current = append(current, sentence)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += len(sentence)
	}
	flush(false)
	return chunks
}

// chunkParagraph applies the sentence accumulation logic at paragraph
// granularity, carrying forward exactly the last paragraph as overlap.
func (c *Chunker) chunkParagraph(text, documentID string, cfg models.ChunkingConfig) []models.Chunk {
	paragraphs := splitNonEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []models.Chunk
	var current []string
	currentLen := 0
	offset := 0

	flush := func(carryOverlap bool) {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, "\n\n")
		chunks = append(chunks, models.Chunk{
			ID:         models.ChunkID(documentID, len(chunks)),
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       chunkText,
			StartChar:  offset,
			EndChar:    offset + len(chunkText),
		})
		if !carryOverlap || cfg.ChunkOverlap <= 0 {
			offset += len(chunkText)
			current = nil
			currentLen = 0
			return
		}
		last := current[len(current)-1]
		offset += len(chunkText) - len(last)
		current = []string{last}
		currentLen = len(last)
	}

	for _, paragraph := range paragraphs {
		addLen := len(paragraph)
		if currentLen > 0 {
			addLen += 2 // joining blank line
		}
		if currentLen > 0 && currentLen+addLen > cfg.ChunkSize && currentLen >= cfg.MinChunkSize {
			flush(true)
		}
		current = append(current, paragraph)
		if currentLen > 0 {
			currentLen += 2
		}
		currentLen += len(paragraph)
	}
	flush(false)
	return chunks
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence. Text without any
// terminator comes back as a single sentence.
func (c *Chunker) splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range c.sentenceRegex.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[last:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// tailWithinBudget returns the trailing segments whose joined length fits
// within budget characters, counted backward from the end.
func tailWithinBudget(segments []string, budget int) ([]string, int) {
	if budget <= 0 {
		return nil, 0
	}
	total := 0
	start := len(segments)
	for i := len(segments) - 1; i >= 0; i-- {
		add := len(segments[i])
		if total > 0 {
			add++
		}
		if total+add > budget {
			break
		}
		total += add
		start = i
	}
	if start == len(segments) {
		return nil, 0
	}
	retained := make([]string, len(segments)-start)
	copy(retained, segments[start:])
	return retained, total
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
