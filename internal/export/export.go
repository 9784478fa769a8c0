// Package export turns the encoded chunks of a session into a single movie
// file on disk.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kartoza/kartoza-mockup-recorder/internal/encoder"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/kartoza/kartoza-mockup-recorder/internal/notify"
)

// ErrEmptyArtifact is returned when an export produced no bytes
var ErrEmptyArtifact = errors.New("export produced an empty file")

// maxCollisions bounds the -N suffix search
const maxCollisions = 1000

// Finalize concatenates chunks in order into one artifact
func Finalize(chunks [][]byte, format encoder.Format, createdAt time.Time) (*models.Artifact, error) {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	if size == 0 {
		return nil, ErrEmptyArtifact
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	ext := format.Extension
	if ext == "" {
		ext = "webm"
	}
	mime := format.MIMEType
	if mime == "" {
		mime = "video/" + ext
	}

	return &models.Artifact{
		Data:      data,
		MIMEType:  mime,
		Extension: ext,
		Filename:  Filename(createdAt, ext),
		Size:      int64(size),
		CreatedAt: createdAt,
	}, nil
}

// Filename names an export after its creation time
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("export-%s.%03d.%s", t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond), ext)
}

// Deliverer writes artifacts into an output directory
type Deliverer struct {
	Dir      string
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Deliver writes a to disk and returns its path. An existing file is never
// overwritten; a -N suffix is added instead.
func (d *Deliverer) Deliver(a *models.Artifact) (string, error) {
	if a == nil || len(a.Data) == 0 {
		return "", ErrEmptyArtifact
	}

	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := a.Filename
	if name == "" {
		name = Filename(a.CreatedAt, a.Extension)
	}

	f, path, err := createUnique(d.Dir, name)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	a.Path = path
	a.Filename = filepath.Base(path)

	if d.Logger != nil {
		d.Logger.Info("export saved", "path", path, "size", humanize.Bytes(uint64(a.Size)), "mime", a.MIMEType)
	}
	if d.Notifier != nil {
		if err := d.Notifier.ExportComplete(path, a.Size); err != nil && d.Logger != nil {
			d.Logger.Warn("failed to send notification", "error", err)
		}
	}
	return path, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 0; n < maxCollisions; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("failed to create export file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("failed to create export file: too many files named %s", name)
}
