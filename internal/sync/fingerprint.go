package sync

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// ChunkSize bounds the memory used to hash a file of any size
const ChunkSize = 8 * 1024

// Fingerprint returns the lowercase hex MD5 of the file contents and the
// number of bytes read.
func Fingerprint(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	return fingerprintReader(file)
}

func fingerprintReader(r io.Reader) (string, int64, error) {
	hash := md5.New()
	buf := make([]byte, ChunkSize)

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), total, nil
}
