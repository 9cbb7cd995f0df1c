package tiled

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMapManagerNotLoaded = errors.New("tiled: map manager not loaded")
	ErrMapNotFound         = errors.New("tiled: map not found")
)

// MapManager loads every map below a directory and looks them up by name.
// A map's name is its slash-separated path relative to the directory,
// without extension.
type MapManager struct {
	baseDir  string
	params   LoadParams
	Maps     map[string]*Map
	IsLoaded bool
}

func NewMapManager(baseDir string, params LoadParams) *MapManager {
	return &MapManager{
		baseDir: baseDir,
		params:  params,
		Maps:    make(map[string]*Map),
	}
}

func (mm *MapManager) GetMap(name string) (*Map, error) {
	if !mm.IsLoaded {
		return nil, ErrMapManagerNotLoaded
	}

	if m, ok := mm.Maps[name]; ok {
		return m, nil
	}

	return nil, errors.Wrapf(ErrMapNotFound, "%q", name)
}

// Names returns the loaded map names, sorted.
func (mm *MapManager) Names() []string {
	names := make([]string, 0, len(mm.Maps))
	for name := range mm.Maps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load loads every map file under the base directory. A map that fails is
// skipped; the first such error is returned once all files were tried.
// onLoaded, if set, is called after each file.
func (mm *MapManager) Load(onLoaded func(path string, err error)) error {
	files, err := FindMapFiles(mm.baseDir)
	if err != nil {
		return err
	}

	var firstErr error
	for _, file := range files {
		m, err := LoadFileParams(file, mm.params)
		if err == nil {
			mm.Maps[mm.mapName(file)] = m
		} else if firstErr == nil {
			firstErr = err
		}
		if onLoaded != nil {
			onLoaded(file, err)
		}
	}

	mm.IsLoaded = true
	return firstErr
}

func (mm *MapManager) mapName(file string) string {
	rel, err := filepath.Rel(mm.baseDir, file)
	if err != nil {
		rel = file
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
}

// FindMapFiles walks dir for .tmx files, in lexical order. Generic .xml files
// are skipped since they need not be maps.
func FindMapFiles(dir string) ([]string, error) {
	var tmxFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".tmx") {
			tmxFiles = append(tmxFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "tiled: walking %q", dir)
	}

	return tmxFiles, nil
}
