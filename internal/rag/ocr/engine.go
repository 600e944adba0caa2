package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/disintegration/imaging"
)

var ErrEngineUnavailable = errors.New("ocr engine unavailable")

type Rasterizer interface {
	Render(ctx context.Context, path string, page int, scale float64) (image.Image, error)
}

type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// PopplerRasterizer renders a single page through pdftoppm. Scale 1 is 72 dpi.
type PopplerRasterizer struct {
	binary string
}

func NewPopplerRasterizer(binary string) *PopplerRasterizer {
	if binary == "" {
		binary = config.OCRRasterizerBinary
	}
	return &PopplerRasterizer{binary: binary}
}

func (r *PopplerRasterizer) Render(ctx context.Context, path string, page int, scale float64) (image.Image, error) {
	if _, err := exec.LookPath(r.binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrEngineUnavailable, r.binary)
	}
	dpi := strconv.Itoa(int(72 * scale))
	p := strconv.Itoa(page)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, "-f", p, "-l", p, "-r", dpi, "-png", "-singlefile", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render page %d: %w: %s", page, err, strings.TrimSpace(stderr.String()))
	}
	img, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page %d: %w", page, err)
	}
	return img, nil
}

// TesseractEngine pipes a PNG through the tesseract CLI.
type TesseractEngine struct {
	binary   string
	language string
	oem      int
	psm      int
}

func NewTesseractEngine(binary, language string) *TesseractEngine {
	if binary == "" {
		binary = config.OCRTesseractBinary
	}
	if language == "" {
		language = config.OCRLanguage
	}
	return &TesseractEngine{
		binary:   binary,
		language: language,
		oem:      config.OCREngineMode,
		psm:      config.OCRPageSegmentationMode,
	}
}

func (e *TesseractEngine) Args() []string {
	return []string{"stdin", "stdout", "-l", e.language, "--oem", strconv.Itoa(e.oem), "--psm", strconv.Itoa(e.psm)}
}

func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if _, err := exec.LookPath(e.binary); err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrEngineUnavailable, e.binary)
	}
	var input bytes.Buffer
	if err := imaging.Encode(&input, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, e.Args()...)
	cmd.Stdin = &input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Service renders, cleans and recognises one page within a bounded time.
type Service struct {
	rasterizer Rasterizer
	engine     Engine
	scale      float64
	timeout    time.Duration
	logger     *logger_i.Logger
}

func NewService(rasterizer Rasterizer, engine Engine, scale float64, timeout time.Duration) *Service {
	if scale <= 0 {
		scale = config.OCRRenderScale
	}
	if timeout <= 0 {
		timeout = config.OCRPageTimeout
	}
	return &Service{
		rasterizer: rasterizer,
		engine:     engine,
		scale:      scale,
		timeout:    timeout,
		logger:     logger_i.NewLogger("ocr"),
	}
}

func (s *Service) PageText(ctx context.Context, path string, page int) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ocr", time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	img, err := s.rasterizer.Render(ctx, path, page, s.scale)
	if err != nil {
		return "", err
	}
	text, err := s.engine.Recognize(ctx, Preprocess(img))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ocr page %d timed out after %s: %w", page, s.timeout, err)
		}
		return "", err
	}
	usable := len(strings.TrimSpace(text)) > config.OCRMinimumUsefulText
	metrics.CaptureOCRPage(usable)
	s.logger.WithTrace(ctx).Debug("ocr page done", "page", page, "chars", len(text), "usable", usable)
	return text, nil
}
