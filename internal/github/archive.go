package github

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ArchiveLines flattens a run log archive into one "[file] line" entry per
// log line, in archive order. Data that is not a zip archive is returned as
// bare lines.
func ArchiveLines(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrFormat) {
		return plainLines(data)
	}
	if err != nil {
		return nil, fmt.Errorf("open log archive: %w", err)
	}

	var lines []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		scanner := newLineScanner(rc)
		for scanner.Scan() {
			lines = append(lines, "["+f.Name+"] "+strings.TrimRight(scanner.Text(), " \t\r"))
		}
		err = scanner.Err()
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return lines, nil
}

func plainLines(data []byte) ([]string, error) {
	var lines []string
	scanner := newLineScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}
	return lines, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return s
}
