// Command extract runs the material extraction pipeline over a single
// PDF and writes the recovered rows as JSON and/or an XLSX workbook,
// without touching any database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	datalens "github.com/Depfrz/PGN-DataLens"
	"github.com/Depfrz/PGN-DataLens/export"
	"github.com/Depfrz/PGN-DataLens/store"
)

func main() {
	input := flag.String("in", "", "Input PDF file (required)")
	jsonOut := flag.String("json", "", "Write result JSON to this file ('-' for stdout)")
	xlsxOut := flag.String("xlsx", "", "Write materials workbook to this file")
	tesseract := flag.String("tesseract", "", "Path to tesseract binary (default: found on PATH)")
	languages := flag.String("langs", "eng", "Tesseract language codes")
	maxRows := flag.Int("max-rows", 0, "Cap on extracted rows (0 = default)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: extract -in drawing.pdf [-json out.json] [-xlsx out.xlsx]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *jsonOut == "" && *xlsxOut == "" {
		*jsonOut = "-"
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		fatal("reading input", err)
	}

	cfg := datalens.DefaultConfig()
	cfg.OCR.BinaryPath = *tesseract
	cfg.OCR.Languages = *languages
	if *maxRows > 0 {
		cfg.MaxRows = *maxRows
	}

	res, err := datalens.ExtractPDF(context.Background(), data, cfg)
	if err != nil {
		fatal("extraction", err)
	}

	slog.Info("extraction finished",
		"method", res.Method,
		"parser", res.Parser,
		"status", res.Status,
		"materials", len(res.Materials),
		"text_chars", res.TextChars)

	if *jsonOut != "" {
		if err := writeJSONResult(*jsonOut, *input, res); err != nil {
			fatal("writing JSON", err)
		}
	}
	if *xlsxOut != "" {
		if err := writeWorkbook(*xlsxOut, *input, res); err != nil {
			fatal("writing XLSX", err)
		}
	}

	if res.Status != datalens.RunSuccess {
		fmt.Fprintln(os.Stderr, "extraction failed: no usable text or materials recovered")
		os.Exit(1)
	}
}

func writeJSONResult(path, input string, res *datalens.ExtractionResult) error {
	out := struct {
		File string `json:"file"`
		*datalens.ExtractionResult
	}{filepath.Base(input), res}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeWorkbook(path, input string, res *datalens.ExtractionResult) error {
	rows := make([]store.Material, len(res.Materials))
	for i, m := range res.Materials {
		rows[i] = store.Material{
			Position:    i + 1,
			Description: m.Description,
			Spec:        m.Spec,
			Size:        m.Size,
			Quantity:    m.Quantity,
			Unit:        m.Unit,
		}
	}
	doc := &store.Document{Filename: filepath.Base(input), DocumentNumber: res.DocInfo.Number}
	data, err := export.Workbook(doc, rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func fatal(op string, err error) {
	fmt.Fprintf(os.Stderr, "extract: %s: %v\n", op, err)
	os.Exit(1)
}
