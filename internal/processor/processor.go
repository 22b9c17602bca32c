/**
 * Lab Report Processor for the Lab Report Worker
 *
 * Orchestrates one lab report image:
 * - size and format gate (magic bytes win over a generic declared type)
 * - grayscale / upscale preprocessing
 * - OCR under the processing timeout
 * - layout reconstruction and field extraction
 */

package processor

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/labreport"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/ocr"
)

// Processor defines the interface for lab report processing
type Processor interface {
	Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Engine      ocr.Engine
	Options     labreport.Options
	Preprocess  ocr.PreprocessConfig
	MaxFileSize int64
	Timeout     time.Duration
	Logger      *logging.Logger
}

// ProcessRequest represents a lab report processing request
type ProcessRequest struct {
	JobID      string
	Filename   string
	MimeType   string
	FileBuffer []byte
	Metadata   map[string]interface{}
}

// ProcessResult represents the processing result
type ProcessResult struct {
	JobID            string              `json:"job_id"`
	Layout           labreport.Layout    `json:"layout"`
	FragmentCount    int                 `json:"fragment_count"`
	RowCount         int                 `json:"row_count"`
	Tests            []labreport.LabTest `json:"tests"`
	OCRConfidence    float64             `json:"ocr_confidence"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
}

// LabReportProcessor runs the OCR and extraction pipeline
type LabReportProcessor struct {
	engine      ocr.Engine
	extractor   *labreport.Extractor
	preprocess  ocr.PreprocessConfig
	maxFileSize int64
	timeout     time.Duration
	logger      *logging.Logger
}

// NewLabReportProcessor creates a new lab report processor
func NewLabReportProcessor(cfg *ProcessorConfig) (*LabReportProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.Engine == nil {
		return nil, fmt.Errorf("OCR engine is required")
	}

	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("processing timeout must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("processor")
	}

	return &LabReportProcessor{
		engine:      cfg.Engine,
		extractor:   labreport.NewExtractor(cfg.Options),
		preprocess:  cfg.Preprocess,
		maxFileSize: cfg.MaxFileSize,
		timeout:     cfg.Timeout,
		logger:      logger,
	}, nil
}

// Process extracts lab tests from a single report image
func (p *LabReportProcessor) Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	startTime := time.Now()
	p.logger.Info("Starting lab report processing", "job", req.JobID, "filename", req.Filename, "bytes", len(req.FileBuffer))

	// Step 1: Size and format gate
	size := int64(len(req.FileBuffer))
	if size > p.maxFileSize {
		return nil, errors.NewFileTooLargeError(req.JobID, size, p.maxFileSize)
	}

	if size == 0 {
		return nil, errors.NewInvalidImageError(req.JobID, fmt.Errorf("file is empty"))
	}

	mimeType, err := resolveMimeType(req)
	if err != nil {
		return nil, err
	}

	// Step 2: Preprocess
	prepared, err := ocr.Preprocess(req.FileBuffer, p.preprocess)
	if err != nil {
		return nil, errors.NewInvalidImageError(req.JobID, err)
	}
	p.logger.Debug("Image prepared", "job", req.JobID, "mime", mimeType, "width", prepared.Width, "height", prepared.Height, "scale", prepared.Scale)

	// Step 3: OCR
	ocrCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fragments, err := p.engine.Extract(ocrCtx, prepared.Data)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewProcessingTimeoutError(req.JobID, p.timeout, err)
		}
		return nil, errors.NewOCRFailedError(req.JobID, p.engine.Name(), err)
	}
	fragments = ocr.ScaleFragments(fragments, 1/prepared.Scale)
	p.logger.Info("OCR complete", "job", req.JobID, "engine", p.engine.Name(), "fragments", len(fragments))

	// Step 4: Layout reconstruction and field extraction
	report := p.extractor.Analyze(fragments)

	result := &ProcessResult{
		JobID:            req.JobID,
		Layout:           report.Layout,
		FragmentCount:    report.FragmentCount,
		RowCount:         report.RowCount,
		Tests:            report.Tests,
		OCRConfidence:    meanConfidence(fragments),
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}

	p.logger.Info("Lab report processed",
		"job", req.JobID,
		"layout", result.Layout,
		"rows", result.RowCount,
		"tests", len(result.Tests),
		"duration_ms", result.ProcessingTimeMs)

	return result, nil
}

// resolveMimeType applies the image-only gate. Content sniffing replaces an
// empty or generic declared type, and non-image content is always rejected.
func resolveMimeType(req *ProcessRequest) (string, error) {
	declared := req.MimeType
	detected := detectMimeTypeFromMagicBytes(req.FileBuffer)

	mimeType := declared
	if detected != "" && (declared == "" || declared == mimeOctetStream) {
		mimeType = detected
	}

	if !isImageMimeType(mimeType) {
		return "", errors.NewUnsupportedFormatError(req.JobID, mimeType)
	}

	if detected != "" && !isImageMimeType(detected) {
		return "", errors.NewUnsupportedFormatError(req.JobID, detected)
	}

	return mimeType, nil
}

func meanConfidence(fragments []labreport.Fragment) float64 {
	if len(fragments) == 0 {
		return 0
	}

	var sum float64
	for _, f := range fragments {
		sum += f.Confidence
	}
	return sum / float64(len(fragments))
}
