// Package dataset reads the text encodings used by LightGBM example
// directories: whitespace separated dense matrices with the label in
// column 0, SVM-light files, and single column side files (weights, init
// scores, query group sizes).
package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

const maxLineBytes = 64 * 1024 * 1024

// openFile opens path, mapping failures to FileAccessError.
func openFile(op, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileAccessError(op, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.NewFileAccessError(op, path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.NewFileAccessError(op, path, errors.New("is a directory"))
	}
	return f, nil
}

// scanLines calls fn for every non-blank, non-comment line with its
// 1-origin line number. Trailing "# ..." comments are stripped.
func scanLines(op, path string, r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.NewFileAccessError(op, path, err)
	}
	return nil
}

// parseFloat accepts the spellings numpy.loadtxt accepts for non-finite values.
func parseFloat(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err == nil {
		return v, nil
	}
	switch strings.ToLower(tok) {
	case "na", "null":
		return strconv.ParseFloat("NaN", 64)
	}
	return 0, err
}

// readMatrix parses a rectangular whitespace separated numeric file.
func readMatrix(op, path string) (data []float64, rows, cols int, err error) {
	f, err := openFile(op, path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	cols = -1
	err = scanLines(op, path, f, func(lineNo int, line string) error {
		fields := strings.Fields(line)
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return errors.NewDatasetParseError(path, lineNo,
				"expected "+strconv.Itoa(cols)+" columns, got "+strconv.Itoa(len(fields)), nil)
		}
		for _, tok := range fields {
			v, perr := parseFloat(tok)
			if perr != nil {
				return errors.NewDatasetParseError(path, lineNo, strconv.Quote(tok)+" is not a number", perr)
			}
			data = append(data, v)
		}
		rows++
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	if rows == 0 {
		return nil, 0, 0, errors.NewDatasetParseError(path, 0, "no data rows", errors.ErrEmptyData)
	}
	return data, rows, cols, nil
}
