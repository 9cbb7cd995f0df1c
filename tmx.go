// Package tiled loads Tiled maps (.tmx) and tilesets (.tsx) into a typed
// model with decoded tile references.
package tiled

import (
	"bytes"
	"encoding/xml"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/talvor/tiled/properties"
)

var (
	ErrUnsupportedExtension  = errors.New("tiled: unsupported file extension")
	ErrFileUnreadable        = errors.New("tiled: file not found or unreadable")
	ErrMalformedDocument     = errors.New("tiled: malformed document")
	ErrUnknownEncoding       = errors.New("tiled: invalid encoding scheme")
	ErrInvalidTileData       = errors.New("tiled: invalid tile data")
	ErrInvalidDecodedDataLen = errors.New("tiled: invalid decoded data length")
	ErrLayerNotFound         = errors.New("tiled: layer not found")
	ErrTileOutOfRange        = errors.New("tiled: tile id out of range")
	ErrImageFreed            = errors.New("tiled: image data was freed")
)

// LoadParams tunes map and tileset loading. The zero value loads
// sequentially, drops bad properties with a warning and decodes images
// with LoadImage.
type LoadParams struct {
	// Policy applies to property entries with a missing name or value or an
	// unsupported type.
	Policy properties.Policy
	// Concurrency bounds how many external tilesets of a map load at once.
	Concurrency int
	Logger      logrus.FieldLogger
	ImageLoader func(path string) (*Image, error)
}

func (p LoadParams) withDefaults() LoadParams {
	if p.Concurrency < 1 {
		p.Concurrency = 1
	}
	if p.Logger == nil {
		p.Logger = logrus.StandardLogger()
	}
	if p.ImageLoader == nil {
		p.ImageLoader = LoadImage
	}
	return p
}

// properties builds a store from an optional <properties> block; nil in,
// nil out.
func (p LoadParams) properties(block *xmlProperties, logger logrus.FieldLogger) (*properties.Properties, error) {
	if block == nil {
		return nil, nil
	}
	return properties.FromEntries(block.Property, properties.Params{
		Policy: p.Policy,
		Logger: logger,
	})
}

// LoadFile loads a .tmx map and every tileset it references.
func LoadFile(path string) (*Map, error) {
	return LoadFileParams(path, LoadParams{})
}

// LoadFileParams loads a map. Tileset sources are resolved against the map's
// directory; any tileset failure fails the whole map.
func LoadFileParams(path string, params LoadParams) (*Map, error) {
	params = params.withDefaults()
	logger := params.Logger.WithField("path", path)

	if err := checkExtension(path, mapExtensions); err != nil {
		return nil, err
	}
	data, err := readDocument(path, logger)
	if err != nil {
		return nil, err
	}

	var doc xmlMap
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "map %q: %v", path, err)
	}

	logger.Debug("loading map")
	m, err := decodeMap(&doc, path, params)
	if err != nil {
		return nil, errors.Wrapf(err, "map %q", path)
	}
	logger.WithField("tilesets", len(m.Tilesets)).WithField("layers", len(m.Layers)).Debug("map loaded")
	return m, nil
}
