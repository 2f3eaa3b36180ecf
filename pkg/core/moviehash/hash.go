// Package moviehash computes the OSDb content fingerprint used as the
// lookup key against the OpenSubtitles index: the file size plus the sum
// of the first and last 64 KiB read as little-endian 64-bit words, with
// uint64 wrap-around. Algorithm reference:
// http://trac.opensubtitles.org/projects/opensubtitles/wiki/HashSourceCodes
package moviehash

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	sgerrors "github.com/subgrab/subgrab/pkg/core/errors"
)

// ChunkSize is the window read from each end of the file.
const ChunkSize = 65536

// MinFileSize is the smallest file the hash is defined for: one full
// chunk at each end, no ambiguous overlap.
const MinFileSize = 2 * ChunkSize

// Hash is the 64-bit fingerprint. It is a checksum, not a digest:
// collisions between unrelated files are expected and tolerated because
// the remote lookup pairs the hash with the byte size.
type Hash uint64

// String renders the hash the way the wire protocol expects it:
// 16 lowercase, zero-padded hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// checksumChunk sums the buffer as consecutive little-endian 64-bit
// words. Overflow wraps; signed vs unsigned is immaterial under
// two's-complement wrapping addition.
func checksumChunk(buf []byte) (sum uint64) {
	for i := 0; i+8 <= len(buf); i += 8 {
		sum += binary.LittleEndian.Uint64(buf[i : i+8])
	}
	return
}

// FromReader computes the fingerprint of a byte source of the given
// total size. It returns errors.ErrFileTooSmall when size < MinFileSize
// and a wrapped errors.ErrHashRead on any read failure; callers treat
// both as "do not search for this file" rather than aborting the batch.
func FromReader(r io.ReaderAt, size int64) (Hash, error) {
	if size < MinFileSize {
		return 0, sgerrors.ErrFileTooSmall
	}

	buf := make([]byte, ChunkSize)
	sum := uint64(size)

	for _, offset := range []int64{0, size - ChunkSize} {
		// ReadAt may return io.EOF together with a complete final chunk.
		n, err := r.ReadAt(buf, offset)
		if err != nil && !(err == io.EOF && n == len(buf)) {
			return 0, fmt.Errorf("%w: chunk at offset %d: %v", sgerrors.ErrHashRead, offset, err)
		}
		sum += checksumChunk(buf)
	}

	return Hash(sum), nil
}

// FromFile opens path and fingerprints it, returning the hash and the
// file's byte size. The file handle is released on every path.
func FromFile(path string) (Hash, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: open %s: %v", sgerrors.ErrHashRead, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: stat %s: %v", sgerrors.ErrHashRead, path, err)
	}

	h, err := FromReader(f, stat.Size())
	if err != nil {
		return 0, stat.Size(), err
	}
	return h, stat.Size(), nil
}
