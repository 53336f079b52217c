package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"rag-pipeline-service/models"
)

// Limits for the direct extractor heuristics.
const (
	maxJSONDepth        = 10
	maxControlCharRatio = 0.10
	minPrintableRatio   = 0.70
	binarySampleSize    = 8192
)

// DirectExtractor handles plain and structured text formats. Structured
// formats (JSON, CSV, HTML/XML) are linearized into readable text rather
// than returned as raw markup.
type DirectExtractor struct {
	blankLines *regexp.Regexp
}

// NewDirectExtractor creates a direct-text extractor.
func NewDirectExtractor() *DirectExtractor {
	return &DirectExtractor{
		blankLines: regexp.MustCompile(`\n{3,}`),
	}
}

// Extract converts the raw bytes of a text-suffixed file into plain text.
// Binary content passed off as text is rejected rather than returned as
// garbage.
func (e *DirectExtractor) Extract(data []byte, ext string) (*ExtractionResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Errorf(KindExtraction, "file is empty")
	}
	if reason := binaryContentReason(data); reason != "" {
		return nil, Errorf(KindExtraction, "file does not look like text: %s", reason)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".json":
		text, err = linearizeJSON(data)
	case ".csv":
		text, err = linearizeCSV(data)
	case ".html", ".htm", ".xml":
		text, err = e.linearizeMarkup(data)
	default:
		text = string(data)
	}
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(e.blankLines.ReplaceAllString(text, "\n\n"))
	if text == "" {
		return nil, Errorf(KindExtraction, "no readable text after processing %s content", ext)
	}
	return &ExtractionResult{Text: text, Method: models.ExtractionMethodDirect}, nil
}

// binaryContentReason returns a human-readable reason when the data looks
// binary, or an empty string for plausible text. Checks: null bytes,
// control-character density, printable-character ratio.
func binaryContentReason(data []byte) string {
	sample := data
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return "contains null bytes"
	}

	var control, printable, total int
	for _, r := range string(sample) {
		total++
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			printable++
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			control++
		case unicode.IsPrint(r):
			printable++
		}
	}
	if total == 0 {
		return ""
	}
	if float64(control)/float64(total) > maxControlCharRatio {
		return "excessive control characters"
	}
	if float64(printable)/float64(total) < minPrintableRatio {
		return "too few printable characters"
	}
	return ""
}

// linearizeJSON walks the decoded document recursively, concatenating
// key/value pairs as readable lines. Recursion depth is capped so deeply
// nested or adversarial payloads terminate.
func linearizeJSON(data []byte) (string, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", WrapError(KindExtraction, err, "invalid JSON")
	}
	var b strings.Builder
	walkJSON(&b, "", value, 0)
	return b.String(), nil
}

func walkJSON(b *strings.Builder, key string, value any, depth int) {
	if depth > maxJSONDepth {
		writeJSONLine(b, key, "...")
		return
	}
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkJSON(b, k, v[k], depth+1)
		}
	case []any:
		for _, item := range v {
			walkJSON(b, key, item, depth+1)
		}
	case string:
		writeJSONLine(b, key, v)
	case float64:
		writeJSONLine(b, key, strings.TrimSuffix(fmt.Sprintf("%v", v), ".0"))
	case bool:
		writeJSONLine(b, key, fmt.Sprintf("%t", v))
	case nil:
		// skip nulls, they add no readable content
	}
}

func writeJSONLine(b *strings.Builder, key, value string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	if key != "" {
		b.WriteString(key)
		b.WriteString(": ")
	}
	b.WriteString(value)
}

// linearizeCSV renders a header line followed by one line per data row.
func linearizeCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", WrapError(KindExtraction, err, "invalid CSV")
	}
	if len(records) == 0 {
		return "", Errorf(KindExtraction, "CSV has no rows")
	}
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, strings.Join(record, ", "))
	}
	return strings.Join(lines, "\n"), nil
}

// linearizeMarkup strips tags, scripts, styles, and comments from HTML or
// XML and returns the decoded text content.
func (e *DirectExtractor) linearizeMarkup(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", WrapError(KindExtraction, err, "invalid markup")
	}
	doc.Find("script, style, noscript").Remove()

	// Collapse the whitespace runs left behind by removed tags.
	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n"), nil
}
