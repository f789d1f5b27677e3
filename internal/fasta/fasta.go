// Package fasta checks input files before they are uploaded.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]struct{}{
	"fasta": {},
	"fa":    {},
}

var (
	// ErrExtension is returned for files the service would refuse by name.
	ErrExtension = errors.New("invalid file format")
	// ErrNoRecords is returned when no ">" header is found.
	ErrNoRecords = errors.New("no FASTA records found")
)

// Summary describes a parsed FASTA file.
type Summary struct {
	Records  int
	Residues int64
	IDs      []string
	Bytes    int64
}

// AllowedFile reports whether name carries an accepted extension.
func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

// Inspect validates the file at path by name and content.
func Inspect(path string) (Summary, error) {
	if !AllowedFile(path) {
		return Summary{}, fmt.Errorf("%w: %s (expected .fasta or .fa)", ErrExtension, filepath.Base(path))
	}
	fh, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer fh.Close()
	return Scan(fh)
}

// Scan reads FASTA records from r. Sequence lines before the first header
// are an error; empty records are allowed.
func Scan(r io.Reader) (Summary, error) {
	var sum Summary
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		sum.Bytes += int64(len(line))
		if len(line) > 0 {
			lineNo++
			line = bytes.TrimRight(line, "\r\n")
			switch {
			case len(line) == 0:
			case line[0] == '>':
				fields := strings.Fields(string(line[1:]))
				if len(fields) == 0 {
					return sum, fmt.Errorf("line %d: empty FASTA header", lineNo)
				}
				sum.Records++
				sum.IDs = append(sum.IDs, fields[0])
			case line[0] == ';':
			default:
				if sum.Records == 0 {
					return sum, fmt.Errorf("line %d: sequence data before first header", lineNo)
				}
				sum.Residues += int64(len(bytes.TrimSpace(line)))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, err
		}
	}
	if sum.Records == 0 {
		return sum, ErrNoRecords
	}
	return sum, nil
}
