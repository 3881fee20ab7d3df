// Package layout defines the tag cell layout: the 21x21 data grid, finder
// and timing patterns, the reserved cross, the data scan order, and the
// mirrored cell pairs that carry the identifier block.
package layout

// Grid dimensions. The data grid is GridSize cells across; the full tag
// footprint, including the ring band and spikes, spans FullGridSize cells.
const (
	GridSize     = 21
	FullGridSize = 36

	// timingIndex is the row and column carrying the timing pattern; the
	// whole cross is reserved.
	timingIndex = 5

	// skipColumn is excluded from the data scan entirely, reserved or not.
	skipColumn = 6

	// DataBits is the number of grid cells visited by the data scan: the
	// 35-byte coded main block.
	DataBits = 280

	// IDBits is the number of mirrored cell pairs carrying the coded
	// identifier block.
	IDBits = 24
)

// Cell addresses a grid cell by column and row.
type Cell struct {
	X, Y int
}

// FinderPattern is the 5x5 block placed at each grid corner; true is black.
var FinderPattern = [5][5]bool{
	{true, true, true, true, true},
	{true, false, false, false, true},
	{true, false, true, false, true},
	{true, false, false, false, true},
	{true, true, true, true, true},
}

// FinderOrigins lists the top-left cell of each finder block in top-left,
// top-right, bottom-left, bottom-right order.
var FinderOrigins = [4]Cell{
	{0, 0},
	{GridSize - 5, 0},
	{0, GridSize - 5},
	{GridSize - 5, GridSize - 5},
}

// InFinder reports whether the cell lies inside one of the four finder
// blocks.
func InFinder(x, y int) bool {
	return (x < 5 || x >= GridSize-5) && (y < 5 || y >= GridSize-5)
}

// IsReserved reports whether the cell is excluded from the data area: the
// four finder blocks plus the full timing row and column.
func IsReserved(x, y int) bool {
	return InFinder(x, y) || x == timingIndex || y == timingIndex
}

// ReservedBlack returns the fixed color of a reserved cell; true is black.
// Timing cells between the finder blocks alternate starting white; the rest
// of the timing cross is solid black.
func ReservedBlack(x, y int) bool {
	if InFinder(x, y) {
		for _, o := range FinderOrigins {
			if x >= o.X && x < o.X+5 && y >= o.Y && y < o.Y+5 {
				return FinderPattern[y-o.Y][x-o.X]
			}
		}
	}
	if x == timingIndex && y >= 5 && y <= GridSize-6 {
		return y%2 == 0
	}
	if y == timingIndex && x >= 5 && x <= GridSize-6 {
		return x%2 == 0
	}
	return true
}

var dataScan []Cell

func init() {
	dataScan = make([]Cell, 0, DataBits)
	for x := GridSize - 1; x >= 0; x-- {
		if x == skipColumn {
			continue
		}
		for y := GridSize - 1; y >= 0; y-- {
			if !IsReserved(x, y) {
				dataScan = append(dataScan, Cell{x, y})
			}
		}
	}
	if len(dataScan) != DataBits {
		panic("layout: data scan order size mismatch")
	}
}

// DataScanOrder returns the cells visited by the data bit stream, most
// significant bit first. Callers must not modify the returned slice.
func DataScanOrder() []Cell {
	return dataScan
}

// IDCellPairs lists the mirrored full-grid cell pairs that carry the
// identifier block, in bit order. Both cells of a pair hold the same bit;
// the pair list is point-symmetric about the tag center. Only the first
// IDBits pairs carry data.
var IDCellPairs = [38][2]Cell{
	{{15, 32}, {21, 4}}, {{16, 32}, {20, 4}}, {{17, 32}, {19, 4}},
	{{18, 32}, {18, 4}}, {{19, 32}, {17, 4}}, {{20, 32}, {16, 4}},
	{{21, 32}, {15, 4}}, {{14, 31}, {22, 5}}, {{15, 31}, {21, 5}},
	{{16, 31}, {20, 5}}, {{17, 31}, {19, 5}}, {{18, 31}, {18, 5}},
	{{19, 31}, {17, 5}}, {{20, 31}, {16, 5}}, {{21, 31}, {15, 5}},
	{{22, 31}, {14, 5}}, {{17, 30}, {19, 6}}, {{18, 30}, {18, 6}},
	{{19, 30}, {17, 6}}, {{4, 15}, {32, 21}}, {{4, 16}, {32, 20}},
	{{4, 17}, {32, 19}}, {{4, 18}, {32, 18}}, {{4, 19}, {32, 17}},
	{{4, 20}, {32, 16}}, {{4, 21}, {32, 15}}, {{5, 14}, {31, 22}},
	{{5, 15}, {31, 21}}, {{5, 16}, {31, 20}}, {{5, 17}, {31, 19}},
	{{5, 18}, {31, 18}}, {{5, 19}, {31, 17}}, {{5, 20}, {31, 16}},
	{{5, 21}, {31, 15}}, {{5, 22}, {31, 14}}, {{6, 17}, {30, 19}},
	{{6, 18}, {30, 18}}, {{6, 19}, {30, 17}},
}
