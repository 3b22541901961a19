package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ModelBaseURL is the Hugging Face path every named whisper.cpp ggml model
// is fetched from. Declared as a var, not a const, so tests can point it at
// a local fixture server.
var ModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// MinModelSize is the smallest plausible ggml model file; anything shorter
// means the download was interrupted or the name doesn't exist.
const MinModelSize = 10 * 1024 * 1024

// ModelManager locates whisper.cpp model files under a configured
// directory and fetches them on demand.
type ModelManager struct {
	dir string
}

// NewModelManager builds a manager rooted at dir. dir is created lazily on
// first Download, not here.
func NewModelManager(dir string) *ModelManager {
	return &ModelManager{dir: dir}
}

// Path returns the on-disk path a model with this name would live at,
// whether or not it's been downloaded yet.
func (m *ModelManager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// Status reports whether the named model is already present and, if so,
// its size in bytes.
func (m *ModelManager) Status(name string) (present bool, sizeBytes int64, err error) {
	info, err := os.Stat(m.Path(name))
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, info.Size(), nil
}

// Download fetches name from ModelBaseURL into the models directory,
// writing to a ".tmp" sibling and renaming it into place only once the
// transfer completes and passes the minimum size check. onProgress, if
// non-nil, is invoked after each chunk with cumulative bytes downloaded
// and the response's advertised total (0 if unknown). A context
// cancellation or a crash leaves only the ".tmp" file behind; the next
// Download call overwrites it from scratch.
func (m *ModelManager) Download(ctx context.Context, name string, onProgress func(downloaded, total int64)) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create model directory %s: %w", m.dir, err)
	}

	destPath := m.Path(name)
	tmpPath := destPath + ".tmp"

	if err := m.downloadToFile(ctx, name, tmpPath, onProgress); err != nil {
		os.Remove(tmpPath)
		return err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("stat downloaded model: %w", err)
	}
	if info.Size() < MinModelSize {
		os.Remove(tmpPath)
		return fmt.Errorf("downloaded model %q is too small (%d bytes)", name, info.Size())
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("move model into place: %w", err)
	}
	return nil
}

func (m *ModelManager) downloadToFile(ctx context.Context, name, tmpPath string, onProgress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ModelBaseURL+name, nil)
	if err != nil {
		return fmt.Errorf("build model request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download model %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model %q: HTTP %d", name, resp.StatusCode)
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create model tmp file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	var downloaded int64
	buf := make([]byte, 1024*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write model tmp file: %w", writeErr)
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read model response: %w", readErr)
		}
	}
	return nil
}
