package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileTimestampLayout = "2006-01-02_150405"

// Writer materializes report artifacts under the output directory. Any
// failure to write an artifact is fatal for the run: a partial report
// must never look like a successful one.
type Writer struct {
	outputDir string
}

// NewWriter creates a Writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// WriteFound writes the found-CatKeys text artifact and returns its
// path. Nothing is written when no list has matches.
func (w *Writer) WriteFound(lists []ListReport, combined []string, generatedAt time.Time) (string, error) {
	if len(combined) == 0 {
		return "", nil
	}
	name := fmt.Sprintf("NYT_Bestsellers_Found_%s.txt", generatedAt.Format(fileTimestampLayout))
	path := filepath.Join(w.outputDir, name)
	if err := w.writeFile(path, []byte(RenderFound(lists, combined, generatedAt))); err != nil {
		return "", err
	}
	return path, nil
}

// WriteNotFound writes the not-found CSV artifact and returns its path.
// Nothing is written when every book was found.
func (w *Writer) WriteNotFound(lists []ListReport, generatedAt time.Time) (string, error) {
	rows := 0
	for _, list := range lists {
		rows += len(list.NotFound)
	}
	if rows == 0 {
		return "", nil
	}
	name := fmt.Sprintf("NYT_Bestsellers_NotFound_%s.csv", generatedAt.Format(fileTimestampLayout))
	path := filepath.Join(w.outputDir, name)

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", w.outputDir, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create not-found report: %w", err)
	}
	if err := WriteNotFoundCSV(file, lists); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write not-found report: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close not-found report: %w", err)
	}
	return path, nil
}

func (w *Writer) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", w.outputDir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}
