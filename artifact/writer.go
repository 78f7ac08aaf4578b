// Package artifact persists lookup captures (screenshots, raw page text and
// PDF snapshots) under a single output directory.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// Writer saves artifacts under Dir. It is safe for concurrent use as long
// as concurrent callers write different names.
type Writer struct {
	Dir string
}

// New returns a Writer rooted at dir.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// EnsureDir creates the output directory if needed. It is idempotent.
func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", w.Dir, err)
	}
	return nil
}

// Path joins name onto the output directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSerial makes a serial number usable as part of a file name.
func SafeSerial(serial string) string {
	s := unsafeChars.ReplaceAllString(serial, "_")
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}

// ScreenshotName is the results screenshot for an adapter prefix. The
// American Standard site uses no prefix for historical file names.
func ScreenshotName(prefix, serial string) string {
	if prefix == "" {
		return fmt.Sprintf("warranty_%s.png", SafeSerial(serial))
	}
	return fmt.Sprintf("warranty_%s_%s.png", prefix, SafeSerial(serial))
}

// RawTextName is the raw page text dump.
func RawTextName(prefix, serial string) string {
	return fmt.Sprintf("%s_raw_%s.txt", prefix, SafeSerial(serial))
}

// PDFName is the printed warranty document.
func PDFName(serial string) string {
	return fmt.Sprintf("warranty_%s.pdf", SafeSerial(serial))
}

// ErrorScreenshotName is the debug screenshot written after a failure.
func ErrorScreenshotName(prefix, serial string) string {
	return fmt.Sprintf("%s_error_%s.png", prefix, SafeSerial(serial))
}

// MarkdownName is the Markdown snapshot of a results page.
func MarkdownName(prefix, serial string) string {
	return fmt.Sprintf("%s_page_%s.md", prefix, SafeSerial(serial))
}

// Save writes data as name and returns the full path.
func (w *Writer) Save(name string, data []byte) (string, error) {
	if err := w.EnsureDir(); err != nil {
		return "", err
	}
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// SaveText writes a raw text dump.
func (w *Writer) SaveText(name, text string) (string, error) {
	return w.Save(name, []byte(text))
}

// SavePDF writes a PDF snapshot.
func (w *Writer) SavePDF(name string, pdf []byte) (string, error) {
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return "", errors.New("not a PDF document")
	}
	return w.Save(name, pdf)
}

// SaveMarkdown writes a Markdown page snapshot.
func (w *Writer) SaveMarkdown(name, md string) (string, error) {
	return w.Save(name, []byte(md))
}

// SaveCropped stores a PNG screenshot with the leftmost left pixels removed.
// The uncropped capture goes to a temp file first and is always deleted;
// when cropping fails neither file is left behind.
func (w *Writer) SaveCropped(name string, pngData []byte, left int) (string, error) {
	if err := w.EnsureDir(); err != nil {
		return "", err
	}
	final := w.Path(name)
	temp := tempName(final)

	if err := os.WriteFile(temp, pngData, 0o644); err != nil {
		return "", fmt.Errorf("write temp screenshot: %w", err)
	}
	defer func() {
		if err := os.Remove(temp); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temp screenshot", "path", temp, "error", err)
		}
	}()

	if err := cropFile(temp, final, left); err != nil {
		_ = os.Remove(final)
		return "", err
	}
	return final, nil
}

func tempName(final string) string {
	ext := filepath.Ext(final)
	return final[:len(final)-len(ext)] + "_temp" + ext
}

func cropFile(src, dst string, left int) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open temp screenshot: %w", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}

	cropped, err := Crop(img, left)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	if err := png.Encode(out, cropped); err != nil {
		out.Close()
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return out.Close()
}

// Crop returns img without its leftmost left pixels. The result starts at
// the origin, has width W-left and the original height.
func Crop(img image.Image, left int) (image.Image, error) {
	b := img.Bounds()
	if left < 0 || left >= b.Dx() {
		return nil, fmt.Errorf("crop %dpx from %dpx wide image", left, b.Dx())
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()-left, b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X+left, b.Min.Y), draw.Src)
	return dst, nil
}
