package stackdb

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// KeepListFromReference loads the kept pairs of a reference network.
// A stack database yields its non-dropped pairs; any other file parses
// as a pair-per-line text list.
func KeepListFromReference(path string) ([]ifgram.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}

	header := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}

	if n == len(sqliteMagic) && bytes.Equal(header, sqliteMagic) {
		f.Close()
		ref, err := Open(path)
		if err != nil {
			return nil, err
		}
		defer ref.Close()
		keep, err := ref.KeptPairs()
		if err != nil {
			return nil, fmt.Errorf("reference stack %s: %w", path, err)
		}
		return keep, nil
	}

	defer f.Close()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	keep, err := ifgram.ReadPairList(f)
	if err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	return keep, nil
}
