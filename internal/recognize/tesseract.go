package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

// TesseractConfig configures the tesseract-backed engine.
type TesseractConfig struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	PSM int // 6 is good for uniform blocks of UI text
	OEM int // 1 = LSTM; leave 0 to use default
}

// TesseractEngine runs tesseract in TSV mode and groups word rows into
// line-level fragments with pixel boxes and mean word confidence.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &TesseractEngine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) ([]Fragment, error) {
	tmpDir, err := os.MkdirTemp("", "ecosteps-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", common.ErrRecognition, err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, img, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write temp image: %v", common.ErrRecognition, err)
	}

	args := []string{in, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract: %v: %s", common.ErrRecognition, err, truncate(string(errb), 512))
	}

	frags := parseTSV(string(out))
	e.logger.Debug("recognition done", "fragments", len(frags))
	return frags, nil
}

// parseTSV converts tesseract TSV output into line-level fragments.
// Word rows (level 5) sharing a block/paragraph/line key are joined with
// spaces; the fragment box is the union of word boxes and the confidence
// is the mean word confidence scaled to 0..1.
func parseTSV(tsv string) []Fragment {
	type lineAcc struct {
		words   []string
		box     Box
		confSum float64
		confN   int
	}

	var order []string
	lines := make(map[string]*lineAcc)

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" { // word rows only
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		key := cols[2] + "/" + cols[3] + "/" + cols[4] // block/par/line
		acc, ok := lines[key]
		if !ok {
			acc = &lineAcc{box: Box{Left: left, Top: top, Width: width, Height: height}}
			lines[key] = acc
			order = append(order, key)
		}
		acc.words = append(acc.words, text)
		acc.box = unionBox(acc.box, Box{Left: left, Top: top, Width: width, Height: height})

		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			acc.confSum += conf
			acc.confN++
		}
	}

	frags := make([]Fragment, 0, len(order))
	for _, key := range order {
		acc := lines[key]
		var conf float32
		if acc.confN > 0 {
			conf = float32(acc.confSum / float64(acc.confN) / 100.0)
		}
		frags = append(frags, Fragment{
			Text:       strings.Join(acc.words, " "),
			Box:        acc.box,
			Confidence: conf,
		})
	}
	return frags
}

func unionBox(a, b Box) Box {
	right := max(a.Left+a.Width, b.Left+b.Width)
	bottom := max(a.Top+a.Height, b.Top+b.Height)
	left := min(a.Left, b.Left)
	top := min(a.Top, b.Top)
	return Box{Left: left, Top: top, Width: right - left, Height: bottom - top}
}
