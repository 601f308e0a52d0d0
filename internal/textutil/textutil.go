package textutil

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Processor prepares untrusted message text before it reaches a model
// prompt: size capping, UTF-8 repair, whitespace collapsing.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{
		logger: logger,
	}
}

// Truncate caps text at maxSize bytes without splitting a UTF-8
// sequence. A marker is appended whenever content was dropped.
func (p *Processor) Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	p.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... truncated ...]"
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the string.
func (p *Processor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	p.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// CollapseSpace folds runs of whitespace into single spaces, which
// keeps prompts compact for snippet-sized inputs.
func (p *Processor) CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Prepare truncates and sanitizes text in one step.
func (p *Processor) Prepare(text string, maxSize int) string {
	return p.SanitizeUTF8(p.Truncate(text, maxSize))
}

// ExtractJSON returns the first balanced JSON object embedded in s.
// Model responses frequently wrap their JSON in prose or code fences;
// this pulls the object out so it can be unmarshalled directly.
func ExtractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
