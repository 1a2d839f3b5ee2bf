package speech

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"blac/config"
)

// progress values are emitted only when they change, so 101 progress events
// plus the terminal one is the most a download can produce.
const eventBuffer = 102

// ModelManager owns the on-disk speech model and its readiness state.
type ModelManager struct {
	mu         sync.Mutex
	url        string
	name       string
	modelsDir  string
	httpClient *http.Client
	state      Readiness
}

type ManagerOption func(*ModelManager)

func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *ModelManager) { m.httpClient = c }
}

// NewModelManager checks for an already extracted model; the initial state
// is Ready when it is present.
func NewModelManager(url, name, modelsDir string, opts ...ManagerOption) *ModelManager {
	m := &ModelManager{
		url:        url,
		name:       name,
		modelsDir:  modelsDir,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(m)
	}
	if info, err := os.Stat(m.ModelDir()); err == nil && info.IsDir() {
		m.state = Readiness{Status: StatusReady}
	}
	return m
}

func NewModelManagerFromConfig(cfg *config.Config, opts ...ManagerOption) *ModelManager {
	return NewModelManager(cfg.Voice.ModelURL, cfg.Voice.ModelName, cfg.ModelsDir(), opts...)
}

// ModelDir is the extracted model directory.
func (m *ModelManager) ModelDir() string {
	return filepath.Join(m.modelsDir, m.name)
}

func (m *ModelManager) Readiness() Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Download fetches and extracts the model in the background. The returned
// channel carries progress and closes after the terminal event. When the
// model is already present a single Done event is delivered.
func (m *ModelManager) Download(ctx context.Context) (<-chan ProgressEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make(chan ProgressEvent, eventBuffer)
	switch m.state.Status {
	case StatusReady:
		events <- ProgressEvent{Progress: 100, Done: true}
		close(events)
		return events, nil
	case StatusDownloading:
		return nil, ErrDownloadInProgress
	}

	m.state = Readiness{Status: StatusDownloading}
	go m.run(ctx, events)
	return events, nil
}

func (m *ModelManager) run(ctx context.Context, events chan<- ProgressEvent) {
	defer close(events)

	config.Debugf("[Speech] downloading model from %s", m.url)
	err := m.fetchAndExtract(ctx, func(p int) {
		m.setProgress(p)
		events <- ProgressEvent{Progress: p}
	})

	m.mu.Lock()
	if err != nil {
		m.state = Readiness{Status: StatusNotReady}
	} else {
		m.state = Readiness{Status: StatusReady}
	}
	m.mu.Unlock()

	if err != nil {
		config.Debugf("[Speech] model download failed: %v", err)
		events <- ProgressEvent{Err: err}
		return
	}
	config.Debugf("[Speech] model ready at %s", m.ModelDir())
	events <- ProgressEvent{Progress: 100, Done: true}
}

func (m *ModelManager) setProgress(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == StatusDownloading {
		m.state.Progress = p
	}
}

func (m *ModelManager) fetchAndExtract(ctx context.Context, progress func(int)) error {
	if err := os.MkdirAll(m.modelsDir, 0700); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	archive, err := os.CreateTemp(m.modelsDir, ".download-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(archive.Name())
	defer archive.Close()

	if err := m.fetch(ctx, archive, progress); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(m.modelsDir, ".extract-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := unzip(archive.Name(), staging); err != nil {
		return err
	}

	extracted := filepath.Join(staging, m.name)
	if info, err := os.Stat(extracted); err != nil || !info.IsDir() {
		return fmt.Errorf("archive does not contain %s/", m.name)
	}
	if err := os.Rename(extracted, m.ModelDir()); err != nil {
		return fmt.Errorf("failed to install model: %w", err)
	}
	return nil
}

func (m *ModelManager) fetch(ctx context.Context, dst io.Writer, progress func(int)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return fmt.Errorf("invalid model URL: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download failed: HTTP %d", resp.StatusCode)
	}

	counter := &progressWriter{total: resp.ContentLength, report: progress, last: -1}
	counter.emit()
	if _, err := io.Copy(io.MultiWriter(dst, counter), resp.Body); err != nil {
		return fmt.Errorf("model download interrupted: %w", err)
	}
	return nil
}

// progressWriter converts a byte count into whole-percent callbacks.
type progressWriter struct {
	total   int64
	written int64
	last    int
	report  func(int)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.emit()
	return len(p), nil
}

func (w *progressWriter) emit() {
	pct := 0
	if w.total > 0 {
		pct = int(w.written * 100 / w.total)
		if pct > 100 {
			pct = 100
		}
	}
	if pct != w.last {
		w.last = pct
		w.report(pct)
	}
}

func unzip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open model archive: %w", err)
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0700); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}
