// Package isoinspect reads the ISO9660 directory tree of a source image to
// preview the payload decision before anything is mounted or erased.
package isoinspect

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/kdomanski/iso9660"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/payload"
)

// Preview is what the payload policy would do with an image.
type Preview struct {
	Found  bool
	Size   int64
	Action payload.Action
}

func (p Preview) String() string {
	if !p.Found {
		return "install image not found in ISO9660 tree (UDF-only media are decided after mounting)"
	}
	return fmt.Sprintf("install image is %d bytes: %s", p.Size, p.Action)
}

// InspectFile opens an image on disk and previews relPath inside it.
func InspectFile(imagePath, relPath string) (Preview, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return Preview{}, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	return Inspect(f, relPath)
}

// Inspect previews relPath inside an ISO9660 image. Name matching ignores
// case and the ";1" version suffix.
func Inspect(r io.ReaderAt, relPath string) (Preview, error) {
	img, err := iso9660.OpenImage(r)
	if err != nil {
		return Preview{}, errors.Wrap(err, "failed to read ISO9660 volume")
	}

	dir, err := img.RootDir()
	if err != nil {
		return Preview{}, errors.Wrap(err, "failed to read root directory")
	}

	parts := strings.Split(path.Clean(strings.TrimPrefix(relPath, "/")), "/")
	for i, part := range parts {
		child, err := findChild(dir, part)
		if err != nil {
			return Preview{}, err
		}
		if child == nil {
			slog.Debug("iso_payload_not_found", "path", relPath, "missing", part)
			return Preview{Action: payload.ActionAbsent}, nil
		}
		if i == len(parts)-1 {
			if child.IsDir() {
				return Preview{}, fmt.Errorf("%s is a directory", relPath)
			}
			size := child.Size()
			slog.Debug("iso_payload_found", "path", relPath, "size", size)
			return Preview{Found: true, Size: size, Action: payload.Decide(size)}, nil
		}
		if !child.IsDir() {
			return Preview{Action: payload.ActionAbsent}, nil
		}
		dir = child
	}

	return Preview{Action: payload.ActionAbsent}, nil
}

func findChild(dir *iso9660.File, name string) (*iso9660.File, error) {
	children, err := dir.GetChildren()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list directory")
	}
	for _, c := range children {
		if strings.EqualFold(normalizeName(c.Name()), name) {
			return c, nil
		}
	}
	return nil, nil
}

func normalizeName(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".")
}
