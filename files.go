package tiled

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	mapExtensions     = []string{".tmx", ".xml"}
	tilesetExtensions = []string{".tsx", ".xml"}
)

func hasExtension(path string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func checkExtension(path string, exts []string) error {
	if !hasExtension(path, exts) {
		return errors.Wrapf(ErrUnsupportedExtension, "%q is not a %s file", path, strings.Join(exts, " or "))
	}
	return nil
}

// resolvePath joins a document-relative path onto base. Absolute paths are
// returned unchanged.
func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, filepath.FromSlash(path))
}

// readDocument returns the file contents or ErrFileUnreadable. Missing and
// empty files are reported the same way.
func readDocument(path string, logger logrus.FieldLogger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).Debug("read failed")
		data = nil
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrFileUnreadable, "%q", path)
	}
	return data, nil
}
