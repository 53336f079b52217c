package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"rag-pipeline-service/models"
)

// minStructuralTextLength is the heuristic below which a PDF's structural
// text is treated as a scanned/image-only document.
const minStructuralTextLength = 100

// PDFExtractor attempts structural text extraction first and falls back to
// OCR over rasterized pages for scanned documents.
type PDFExtractor struct {
	ocr        *OCRExtractor
	rasterizer PageRasterizer
}

// NewPDFExtractor creates a PDF extractor. rasterizer may be nil; the
// scanned-document fallback then fails with an explanatory error.
func NewPDFExtractor(ocr *OCRExtractor, rasterizer PageRasterizer) *PDFExtractor {
	return &PDFExtractor{ocr: ocr, rasterizer: rasterizer}
}

// Extract pulls text out of a PDF. Structural extraction reports method
// pdf-text; the OCR fallback over rendered pages reports hybrid.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*ExtractionResult, error) {
	text, err := e.extractStructural(data)
	if err != nil {
		return nil, err
	}

	if len(text) >= minStructuralTextLength {
		return &ExtractionResult{Text: text, Method: models.ExtractionMethodPDFText}, nil
	}

	slog.Info("structural PDF text below threshold, treating as scanned document",
		"text_length", len(text))
	return e.extractScanned(ctx, data)
}

func (e *PDFExtractor) extractStructural(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", WrapError(KindExtraction, err, "failed to parse PDF")
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			slog.Warn("failed to extract text from PDF page", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(pageText))
	}
	return b.String(), nil
}

// extractScanned rasterizes the PDF pages and OCRs each one. Both the
// rasterizer and a vision provider are required.
func (e *PDFExtractor) extractScanned(ctx context.Context, data []byte) (*ExtractionResult, error) {
	if e.rasterizer == nil {
		return nil, Errorf(KindExtraction,
			"PDF contains no extractable text and appears to be scanned, but no page rasterizer is configured for the OCR fallback")
	}
	if e.ocr == nil || !e.ocr.Available() {
		return nil, Errorf(KindExtraction,
			"PDF appears to be scanned but no vision provider is configured for the OCR fallback")
	}

	pages, err := e.rasterizer.RasterizePages(ctx, data)
	if err != nil {
		return nil, WrapError(KindExtraction, err, "failed to rasterize PDF pages for OCR")
	}
	if len(pages) == 0 {
		return nil, Errorf(KindExtraction, "PDF rasterization produced no pages")
	}

	var b strings.Builder
	for i, pageImage := range pages {
		pageText, err := e.ocr.ExtractPage(ctx, pageImage)
		if err != nil {
			return nil, WrapError(KindExtraction, err, "OCR failed on PDF page %d of %d", i+1, len(pages))
		}
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(fmt.Sprintf("\n\n--- PAGE %d ---\n", i+1))
		}
		b.WriteString(pageText)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, Errorf(KindExtraction, "OCR fallback produced no text from %d rasterized pages", len(pages))
	}
	return &ExtractionResult{
		Text:   text,
		Method: models.ExtractionMethodHybrid,
		Model:  e.ocr.client.ModelName(),
	}, nil
}
