// ecosteps-batch validates the recognition pipeline against a labeled
// dataset: it reads a ground-truth CSV (category, filename, expected
// steps), runs every image through the local pipeline, prints per-app
// accuracy, and writes the full results to an XLSX workbook.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
	"github.com/wildanal2/ocr-ecosteps/internal/extract"
	"github.com/wildanal2/ocr-ecosteps/internal/pipeline"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
)

type testCase struct {
	category string
	filename string
	expected int
}

type caseResult struct {
	testCase
	predicted string
	got       *int
	timeMS    int64
	rawOCR    string
	err       error
}

func main() {
	datasetDir := flag.String("dataset", "datasets", "dataset root directory")
	truthPath := flag.String("truth", "", "ground truth CSV (default <dataset>/ground_truth.csv)")
	outPath := flag.String("out", "ocr_results.xlsx", "results workbook path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if *truthPath == "" {
		*truthPath = filepath.Join(*datasetDir, "ground_truth.csv")
	}

	cases, err := loadGroundTruth(*truthPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load ground truth: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Testing %d images from %s\n\n", len(cases), *truthPath)

	cfg := common.LoadConfig()
	fetcher := recognize.NewFetcher(cfg.OCR.DownloadTimeout)
	engine := recognize.NewTesseractEngine(recognize.TesseractConfig{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
	}, logger)
	proc := pipeline.NewProcessor(recognize.NewAdapter(fetcher, engine, logger), extract.NewEngine(logger), logger)

	ctx := context.Background()
	results := make([]caseResult, 0, len(cases))
	correct := 0
	var totalTime int64

	for i, tc := range cases {
		r := runCase(ctx, proc, *datasetDir, tc)
		results = append(results, r)
		totalTime += r.timeMS

		mark := "FAIL"
		got := "none"
		if r.err != nil {
			got = "ERROR: " + r.err.Error()
		} else if r.got != nil {
			got = strconv.Itoa(*r.got)
		}
		if r.err == nil && r.got != nil && *r.got == tc.expected {
			mark = "ok"
			correct++
		}
		fmt.Printf("%3d. %-4s %-50s App: %-16s Expected: %6d, Got: %s\n",
			i+1, mark, tc.filename, r.predicted, tc.expected, got)
	}

	printSummary(results, correct, totalTime)

	if err := writeWorkbook(*outPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "write workbook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nResults written to %s\n", *outPath)
}

func runCase(ctx context.Context, proc *pipeline.Processor, datasetDir string, tc testCase) caseResult {
	r := caseResult{testCase: tc}

	path := filepath.Join(datasetDir, tc.category, tc.filename)
	out, err := proc.Process(ctx, path, "")
	r.timeMS = out.Duration.Milliseconds()
	if err != nil {
		r.err = err
		return r
	}

	r.predicted = string(out.AppClass)
	r.rawOCR = out.RawText
	r.got = out.Data.Steps
	return r
}

func loadGroundTruth(path string) ([]testCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var cases []testCase
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if len(row) < 3 || row[0] == "" || row[1] == "" {
			continue
		}
		expected, err := strconv.Atoi(row[2])
		if err != nil {
			continue // header or malformed row
		}
		cases = append(cases, testCase{category: row[0], filename: row[1], expected: expected})
	}
	return cases, nil
}

func printSummary(results []caseResult, correct int, totalTime int64) {
	type stats struct{ correct, total int }
	byApp := map[string]*stats{}
	for _, r := range results {
		key := r.category
		st, ok := byApp[key]
		if !ok {
			st = &stats{}
			byApp[key] = st
		}
		st.total++
		if r.err == nil && r.got != nil && *r.got == r.expected {
			st.correct++
		}
	}

	total := len(results)
	fmt.Printf("\nOVERALL RESULTS:\n")
	fmt.Printf("Total: %d/%d correct\n", correct, total)
	if total > 0 {
		fmt.Printf("Accuracy: %.1f%%\n", float64(correct)/float64(total)*100)
		fmt.Printf("Avg Time: %dms\n", totalTime/int64(total))
	}

	apps := make([]string, 0, len(byApp))
	for app := range byApp {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	fmt.Printf("\nRESULTS BY APP:\n")
	for _, app := range apps {
		st := byApp[app]
		acc := 0.0
		if st.total > 0 {
			acc = float64(st.correct) / float64(st.total) * 100
		}
		fmt.Printf("%-20s: %3d/%3d (%5.1f%%)\n", app, st.correct, st.total, acc)
	}
}

func writeWorkbook(path string, results []caseResult) error {
	f := excelize.NewFile()
	const sheet = "Results"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	headers := []string{"Category", "File", "Predicted App", "Expected Steps", "Got Steps", "Match", "Time (ms)", "Raw OCR"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, r := range results {
		row := i + 2
		got := any("")
		if r.got != nil {
			got = *r.got
		}
		match := r.err == nil && r.got != nil && *r.got == r.expected
		values := []any{r.category, r.filename, r.predicted, r.expected, got, match, r.timeMS, r.rawOCR}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
