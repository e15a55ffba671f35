package form

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/ids"
)

// Preview is a displayable handle for a selected image. It must be released
// once the selection is superseded or dropped.
type Preview interface {
	Path() string
	Release() error
}

// Previewer acquires previews for selected images.
type Previewer interface {
	Acquire(img *events.Image) (Preview, error)
}

const previewPrefix = "eventhub-preview-"

var extRegex = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// TempPreviewer writes each selected image to its own file under Dir so an
// external viewer can open it.
type TempPreviewer struct {
	Dir string
}

func NewTempPreviewer(dir string) *TempPreviewer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempPreviewer{Dir: dir}
}

func (p *TempPreviewer) Acquire(img *events.Image) (Preview, error) {
	if img == nil {
		return nil, errors.New("no image selected")
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("preview name: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(img.Name))
	if !extRegex.MatchString(ext) {
		ext = ""
	}

	path := filepath.Join(p.Dir, previewPrefix+id+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := f.Write(img.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close preview: %w", err)
	}
	return &tempPreview{path: path}, nil
}

// Sweep removes previews under Dir created more than maxAge ago. They are
// left behind only when a process dies before releasing them.
func (p *TempPreviewer) Sweep(maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(p.Dir, previewPrefix+"*"))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		name := strings.TrimPrefix(filepath.Base(path), previewPrefix)
		created, err := ids.ULIDTime(strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil || !created.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove stale preview: %w", err)
		}
		removed++
	}
	return removed, nil
}

type tempPreview struct {
	path string
	once sync.Once
	err  error
}

func (t *tempPreview) Path() string { return t.path }

// Release removes the file. Repeated calls are no-ops.
func (t *tempPreview) Release() error {
	t.once.Do(func() {
		if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.err = err
		}
	})
	return t.err
}
