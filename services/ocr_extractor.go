package services

import (
	"context"
	"strings"

	"rag-pipeline-service/models"
)

// Default OCR prompts, selected by the model family of the configured
// vision client.
const (
	geminiOCRPrompt = "Extract ALL text content from this image exactly as it appears, " +
		"maintaining original formatting, line breaks, and structure. Do not summarize, " +
		"interpret, or modify the content. Include headers, captions, and all readable text."
	genericOCRPrompt = "Transcribe every piece of readable text in this image verbatim. " +
		"Preserve the reading order and line breaks. Output only the transcribed text."
)

// OCRExtractor reads text out of images by delegating to an external
// vision-capable completion call.
type OCRExtractor struct {
	client VisionOCR
}

// NewOCRExtractor creates an OCR extractor. A nil client is allowed; every
// extraction then fails with an explanatory error.
func NewOCRExtractor(client VisionOCR) *OCRExtractor {
	return &OCRExtractor{client: client}
}

// Extract runs OCR over a single image. ext selects the image format sent
// to the provider.
func (e *OCRExtractor) Extract(ctx context.Context, data []byte, ext string) (*ExtractionResult, error) {
	if e.client == nil {
		return nil, Errorf(KindExtraction, "no vision provider configured for OCR extraction")
	}
	if len(data) == 0 {
		return nil, Errorf(KindExtraction, "image file is empty")
	}

	text, err := e.client.ExtractImageText(ctx, data, imageFormat(ext), e.defaultPrompt())
	if err != nil {
		return nil, WrapError(KindExtraction, err, "OCR extraction failed")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Errorf(KindExtraction, "OCR produced no text for this image")
	}
	return &ExtractionResult{
		Text:   text,
		Method: models.ExtractionMethodOCR,
		Model:  e.client.ModelName(),
	}, nil
}

// ExtractPage OCRs a single rasterized PDF page. Used by the PDF extractor's
// scanned-document fallback.
func (e *OCRExtractor) ExtractPage(ctx context.Context, pageImage []byte) (string, error) {
	if e.client == nil {
		return "", Errorf(KindExtraction, "no vision provider configured for OCR extraction")
	}
	text, err := e.client.ExtractImageText(ctx, pageImage, "png", e.defaultPrompt())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Available reports whether a vision provider is wired.
func (e *OCRExtractor) Available() bool { return e.client != nil }

func (e *OCRExtractor) defaultPrompt() string {
	if strings.Contains(strings.ToLower(e.client.ModelName()), "gemini") {
		return geminiOCRPrompt
	}
	return genericOCRPrompt
}

func imageFormat(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".webp":
		return "webp"
	case ".tiff", ".tif":
		return "tiff"
	default:
		return "png"
	}
}
