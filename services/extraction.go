package services

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// ExtractionResult is the common result shape shared by all extractors.
type ExtractionResult struct {
	Text     string
	Method   string
	Model    string
	Duration time.Duration
}

// VisionOCR is a vision-capable completion call used to read text out of
// images. Implemented by the Gemini client adapter.
type VisionOCR interface {
	ExtractImageText(ctx context.Context, imageData []byte, format, prompt string) (string, error)
	ModelName() string
}

// PageRasterizer renders PDF pages to PNG images for the OCR fallback.
// Rasterization is an external collaborator capability; when unavailable
// the PDF extractor reports failure instead of producing empty text.
type PageRasterizer interface {
	RasterizePages(ctx context.Context, pdfData []byte) ([][]byte, error)
}

var (
	imageSuffixes = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
	}
	textSuffixes = map[string]bool{
		".txt": true, ".md": true, ".json": true, ".csv": true,
		".html": true, ".htm": true, ".xml": true, ".log": true,
		".yaml": true, ".yml": true,
	}
)

// Extractor routes uploaded files to the extractor matching their detected
// type and returns extracted plain text plus extraction metadata.
type Extractor struct {
	direct *DirectExtractor
	ocr    *OCRExtractor
	pdf    *PDFExtractor
}

// NewExtractor wires the three extractors. ocr and rasterizer may be nil;
// the affected paths then fail with explanatory errors instead of being
// silently skipped.
func NewExtractor(ocr VisionOCR, rasterizer PageRasterizer) *Extractor {
	ocrExtractor := NewOCRExtractor(ocr)
	return &Extractor{
		direct: NewDirectExtractor(),
		ocr:    ocrExtractor,
		pdf:    NewPDFExtractor(ocrExtractor, rasterizer),
	}
}

// Extract sniffs the file type from the file name and runs the matching
// extractor. Unsupported suffixes are rejected.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (*ExtractionResult, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(fileName))

	var (
		result *ExtractionResult
		err    error
	)
	switch {
	case ext == ".pdf":
		result, err = e.pdf.Extract(ctx, data)
	case imageSuffixes[ext]:
		result, err = e.ocr.Extract(ctx, data, ext)
	case textSuffixes[ext]:
		result, err = e.direct.Extract(data, ext)
	default:
		return nil, Errorf(KindValidation, "unsupported file type %q for %q", ext, fileName)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// SupportedType reports whether a file name maps to any extractor.
func SupportedType(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".pdf" || imageSuffixes[ext] || textSuffixes[ext]
}

// FileType returns the normalized type label used on stored documents.
func FileType(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}
