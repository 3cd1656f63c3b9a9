// Package ocr recovers text from scanned PDFs. Page raster images are
// pulled out with pdfcpu and fed to a local tesseract binary; there is no
// in-process rendering. A missing binary is reported, not fatal.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrUnavailable is returned when no tesseract binary can be found.
// Callers treat it as a degraded mode, not a failure.
var ErrUnavailable = errors.New("ocr: tesseract not available")

// Config holds OCR engine settings.
type Config struct {
	// BinaryPath is the tesseract executable. Empty means look up
	// "tesseract" on PATH.
	BinaryPath string `json:"binary_path" yaml:"binary_path"`

	// Languages is the tesseract -l argument. Defaults to "eng".
	Languages string `json:"languages" yaml:"languages"`

	// MaxPages caps how many pages are OCRed per document. Zero means
	// all pages.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// PageWorkers bounds concurrent tesseract processes.
	PageWorkers int `json:"page_workers" yaml:"page_workers"`
}

// DefaultConfig returns OCR settings suitable for typical scanned
// drawing packages.
func DefaultConfig() Config {
	return Config{
		Languages:   "eng",
		MaxPages:    50,
		PageWorkers: 4,
	}
}

// Engine runs tesseract over the raster content of PDF pages.
type Engine struct {
	cfg Config

	binOnce sync.Once
	bin     string
	binErr  error
}

// New creates an Engine. The binary lookup is deferred until first use.
func New(cfg Config) *Engine {
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.PageWorkers < 1 {
		cfg.PageWorkers = 1
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) binary() (string, error) {
	e.binOnce.Do(func() {
		bin := e.cfg.BinaryPath
		if bin == "" {
			bin = "tesseract"
		}
		e.bin, e.binErr = exec.LookPath(bin)
	})
	if e.binErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, e.binErr)
	}
	return e.bin, nil
}

// Available reports whether a tesseract binary was found.
func (e *Engine) Available() bool {
	_, err := e.binary()
	return err == nil
}

// Text OCRs every page image in the PDF and returns the recognized text,
// pages in order, joined with newlines. Pages without raster content or
// whose recognition fails contribute nothing; the result may be empty.
func (e *Engine) Text(ctx context.Context, data []byte) (string, error) {
	bin, err := e.binary()
	if err != nil {
		return "", err
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("ocr: reading PDF: %w", err)
	}

	pageCount := pdfCtx.PageCount
	if e.cfg.MaxPages > 0 && pageCount > e.cfg.MaxPages {
		pageCount = e.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "datalens-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Image extraction walks shared pdfcpu state, so it runs
	// sequentially; only the tesseract processes fan out.
	pageImages := make([][]string, pageCount)
	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		files, err := extractPageImages(pdfCtx, pageNr, tmpDir)
		if err != nil {
			continue
		}
		pageImages[pageNr-1] = files
	}

	texts := make([]string, pageCount)
	sem := make(chan struct{}, e.cfg.PageWorkers)
	var wg sync.WaitGroup
	for i, files := range pageImages {
		if len(files) == 0 {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, files []string) {
			defer wg.Done()
			defer func() { <-sem }()
			var parts []string
			for _, f := range files {
				out, err := runTesseract(ctx, bin, f, e.cfg.Languages)
				if err != nil {
					continue
				}
				if out = strings.TrimSpace(out); out != "" {
					parts = append(parts, out)
				}
			}
			texts[i] = strings.Join(parts, "\n")
		}(i, files)
	}
	wg.Wait()

	var kept []string
	for _, t := range texts {
		if t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// extractPageImages writes every image XObject of a page to dir and
// returns the file paths in a stable order.
func extractPageImages(pdfCtx *model.Context, pageNr int, dir string) ([]string, error) {
	images, err := pdfcpu.ExtractPageImages(pdfCtx, pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("ocr: page %d images: %w", pageNr, err)
	}

	objNrs := make([]int, 0, len(images))
	for objNr := range images {
		objNrs = append(objNrs, objNr)
	}
	sort.Ints(objNrs)

	var files []string
	for _, objNr := range objNrs {
		img := images[objNr]
		name := fmt.Sprintf("p%04d-o%d.%s", pageNr, objNr, img.FileType)
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return files, err
		}
		_, err = io.Copy(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

// runTesseract recognizes a single image. PSM 6 assumes a uniform block
// of text, which fits tabular drawing content better than full auto
// segmentation.
func runTesseract(ctx context.Context, bin, imgPath, languages string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, imgPath, "stdout", "-l", languages, "--psm", "6")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ocr: tesseract: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
