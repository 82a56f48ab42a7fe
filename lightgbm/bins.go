package lightgbm

import (
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"gonum.org/v1/gonum/mat"
)

// BinMapper discretises one feature. Bin b holds the values v with
// UpperBounds[b-1] < v <= UpperBounds[b]; the last bound is +Inf.
type BinMapper struct {
	UpperBounds []float64
	Min, Max    float64
}

// NewBinMapper builds at most maxBin bins from values. With fewer distinct
// values than maxBin every value gets its own bin; otherwise bins hold
// roughly equal numbers of rows. NaN is binned as 0.
func NewBinMapper(values []float64, maxBin int) *BinMapper {
	sorted := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		sorted[i] = v
	}
	sort.Float64s(sorted)

	var distinct []float64
	var counts []int
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}

	m := &BinMapper{}
	if len(distinct) == 0 {
		m.UpperBounds = []float64{math.Inf(1)}
		return m
	}
	m.Min, m.Max = distinct[0], distinct[len(distinct)-1]

	if len(distinct) <= maxBin {
		for i := 0; i+1 < len(distinct); i++ {
			m.UpperBounds = append(m.UpperBounds, midpoint(distinct[i], distinct[i+1]))
		}
		m.UpperBounds = append(m.UpperBounds, math.Inf(1))
		return m
	}

	remaining := len(sorted)
	binsLeft := maxBin
	inBin := 0
	for i := 0; i+1 < len(distinct); i++ {
		inBin += counts[i]
		remaining -= counts[i]
		target := float64(remaining+inBin) / float64(binsLeft)
		if float64(inBin) >= target && binsLeft > 1 {
			m.UpperBounds = append(m.UpperBounds, midpoint(distinct[i], distinct[i+1]))
			binsLeft--
			inBin = 0
		}
	}
	m.UpperBounds = append(m.UpperBounds, math.Inf(1))
	return m
}

// midpoint returns a bound strictly below hi and not below lo.
func midpoint(lo, hi float64) float64 {
	mid := lo + (hi-lo)/2
	if mid >= hi {
		return lo
	}
	return mid
}

// NumBins returns the number of bins.
func (m *BinMapper) NumBins() int {
	return len(m.UpperBounds)
}

// Trivial reports whether the feature has a single value and cannot split.
func (m *BinMapper) Trivial() bool {
	return m.NumBins() <= 1
}

// ValueToBin maps a raw value to its bin.
func (m *BinMapper) ValueToBin(v float64) uint16 {
	if math.IsNaN(v) {
		v = 0
	}
	return uint16(sort.SearchFloat64s(m.UpperBounds, v))
}

// Info is the feature_infos entry of the model header.
func (m *BinMapper) Info() string {
	if m.Trivial() {
		return "none"
	}
	return "[" + formatFloat(m.Min) + ":" + formatFloat(m.Max) + "]"
}

// BinnedData is a column-major binned copy of a feature matrix.
type BinnedData struct {
	numData int
	mappers []*BinMapper
	bins    [][]uint16
	usable  []int
}

// NewBinnedData bins every column of X.
func NewBinnedData(X mat.Matrix, maxBin int) *BinnedData {
	rows, cols := X.Dims()
	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = make([]float64, rows)
	}
	buf := make([]float64, cols)
	for i := 0; i < rows; i++ {
		buf = dataset.Row(buf, i, X)
		for j, v := range buf {
			columns[j][i] = v
		}
	}

	d := &BinnedData{
		numData: rows,
		mappers: make([]*BinMapper, cols),
		bins:    make([][]uint16, cols),
	}
	for j, col := range columns {
		m := NewBinMapper(col, maxBin)
		d.mappers[j] = m
		if m.Trivial() {
			continue
		}
		d.usable = append(d.usable, j)
		b := make([]uint16, rows)
		for i, v := range col {
			b[i] = m.ValueToBin(v)
		}
		d.bins[j] = b
	}
	return d
}

// NumData returns the number of rows.
func (d *BinnedData) NumData() int { return d.numData }

// NumFeatures returns the number of columns, trivial ones included.
func (d *BinnedData) NumFeatures() int { return len(d.mappers) }

// UsableFeatures lists the columns with more than one bin.
func (d *BinnedData) UsableFeatures() []int { return d.usable }

// Mapper returns the bin mapper of feature j.
func (d *BinnedData) Mapper(j int) *BinMapper { return d.mappers[j] }

// FeatureInfos renders the feature_infos header entries.
func (d *BinnedData) FeatureInfos() []string {
	infos := make([]string, len(d.mappers))
	for j, m := range d.mappers {
		infos[j] = m.Info()
	}
	return infos
}

// DefaultFeatureNames returns Column_0..Column_{n-1}.
func DefaultFeatureNames(n int) []string {
	names := make([]string, n)
	for j := range names {
		names[j] = "Column_" + strconv.Itoa(j)
	}
	return names
}
