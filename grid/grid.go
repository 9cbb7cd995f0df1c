// Package grid provides a fixed-size, row-major 2D container.
package grid

import (
	"iter"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrOutOfBounds  = errors.New("grid: index out of bounds")
	ErrSizeMismatch = errors.New("grid: cell count does not match size")
)

// Point is a cell coordinate.
type Point struct {
	X int
	Y int
}

// Grid holds width*height cells stored row by row. It never changes size.
type Grid[T any] struct {
	width  int
	height int
	cells  []T
}

// New returns a grid with every cell set to the zero value of T. Negative
// sizes and sizes whose cell count overflows int yield an empty 0x0 grid.
func New[T any](width, height int) *Grid[T] {
	width, height = max(width, 0), max(height, 0)
	if height != 0 && width > math.MaxInt/height {
		width, height = 0, 0
	}
	return &Grid[T]{
		width:  width,
		height: height,
		cells:  make([]T, width*height),
	}
}

// NewFilled returns a grid with every cell set to fill.
func NewFilled[T any](width, height int, fill T) *Grid[T] {
	g := New[T](width, height)
	for i := range g.cells {
		g.cells[i] = fill
	}
	return g
}

// FromSlice copies row-major cells into a new grid.
func FromSlice[T any](width, height int, cells []T) (*Grid[T], error) {
	g := New[T](width, height)
	if len(cells) != len(g.cells) {
		return nil, errors.Wrapf(ErrSizeMismatch, "%dx%d grid, %d cells", width, height, len(cells))
	}
	copy(g.cells, cells)
	return g, nil
}

func (g *Grid[T]) Width() int  { return g.width }
func (g *Grid[T]) Height() int { return g.height }
func (g *Grid[T]) Len() int    { return len(g.cells) }

func (g *Grid[T]) Size() (width, height int) {
	return g.width, g.height
}

func (g *Grid[T]) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// At returns a pointer to the cell at (x, y).
func (g *Grid[T]) At(x, y int) (*T, error) {
	if !g.contains(x, y) {
		return nil, errors.Wrapf(ErrOutOfBounds, "(%d,%d) in %dx%d", x, y, g.width, g.height)
	}
	return &g.cells[y*g.width+x], nil
}

func (g *Grid[T]) Get(x, y int) (T, bool) {
	if !g.contains(x, y) {
		var zero T
		return zero, false
	}
	return g.cells[y*g.width+x], true
}

func (g *Grid[T]) Set(x, y int, v T) error {
	p, err := g.At(x, y)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Index returns the cell at flat offset i = y*width+x without a bounds check
// beyond the one the slice performs.
func (g *Grid[T]) Index(i int) *T {
	return &g.cells[i]
}

// Iter returns an iterator positioned before the first cell.
func (g *Grid[T]) Iter() *Iterator[T] {
	return &Iterator[T]{grid: g, offset: -1}
}

// All yields every cell in row-major order together with its coordinate.
func (g *Grid[T]) All() iter.Seq2[Point, *T] {
	return func(yield func(Point, *T) bool) {
		for i := range g.cells {
			if !yield(Point{X: i % g.width, Y: i / g.width}, &g.cells[i]) {
				return
			}
		}
	}
}

// Values yields a copy of every cell in row-major order.
func (g *Grid[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range g.cells {
			if !yield(v) {
				return
			}
		}
	}
}

// Equal reports whether a and b have the same size and equal cells.
func Equal[T comparable](a, b *Grid[T]) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.width != b.width || a.height != b.height {
		return false
	}
	for i := range a.cells {
		if a.cells[i] != b.cells[i] {
			return false
		}
	}
	return true
}

// Iterator walks a grid row by row. The zero position is before the first
// cell; call Next before Value.
type Iterator[T any] struct {
	grid   *Grid[T]
	offset int
}

func (it *Iterator[T]) Next() bool {
	if it.offset < len(it.grid.cells) {
		it.offset++
	}
	return it.offset < len(it.grid.cells)
}

// Value returns the current cell. It panics if Next has not returned true.
func (it *Iterator[T]) Value() *T {
	return &it.grid.cells[it.offset]
}

// Pos returns the coordinate of the current cell.
func (it *Iterator[T]) Pos() (x, y int) {
	return it.offset % it.grid.width, it.offset / it.grid.width
}

func (it *Iterator[T]) Reset() {
	it.offset = -1
}
