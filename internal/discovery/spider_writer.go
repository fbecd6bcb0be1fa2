package discovery

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// SpiderWriter journals every visited page, with its links and forms, to a text file.
type SpiderWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewSpiderWriter creates a new SpiderWriter instance appending to filename.
func NewSpiderWriter(filename string) (*SpiderWriter, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open spider result file: %w", err)
	}

	return &SpiderWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// ObservePage writes one crawled page to the journal.
func (w *SpiderWriter) ObservePage(page Page) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if page.Err != nil {
		fmt.Fprintf(w.writer, "GET %s\nError: %v\n", page.URL, page.Err)
	} else {
		fmt.Fprintf(w.writer, "GET %s [%d]\n", page.URL, page.Status)
	}

	if len(page.Forms) > 0 {
		fmt.Fprintln(w.writer, "Forms:")
		for _, form := range page.Forms {
			fmt.Fprintf(w.writer, "  %s %s\n", form.Method, form.Action)
			for _, in := range form.Inputs {
				fmt.Fprintf(w.writer, "    %s (%s) = %q\n", in.Name, in.Type, in.Value)
			}
		}
	}

	if len(page.Links) > 0 {
		fmt.Fprintln(w.writer, "Discovered Links:")
		for _, link := range page.Links {
			fmt.Fprintf(w.writer, "  %s\n", link)
		}
	}

	if _, err := w.writer.WriteString("\n---\n\n"); err != nil {
		return err
	}
	return w.writer.Flush()
}

// Close closes the file
func (w *SpiderWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}
