package hashio

import (
	"crypto/md5" //nolint
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

const size = 512

// ReadAll reads in blocks by buf size and hashes
func ReadAll(r io.Reader, hasher hash.Hash) ([]byte, error) {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("read: %w", err)
		}
	}

	return hasher.Sum(nil), nil
}

// ReadFile hashes the content of the file. A missing file is reported with an error wrapping fs.ErrNotExist
func ReadFile(fileName string, hasherFunc func() hash.Hash) ([]byte, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}
	defer file.Close()

	b, err := ReadAll(file, hasherFunc())
	if err != nil {
		return nil, fmt.Errorf("hashing file content: %w", err)
	}

	return b, nil
}

// Sum returns the hash of b
func Sum(b []byte, hasherFunc func() hash.Hash) []byte {
	h := hasherFunc()
	_, _ = h.Write(b)

	return h.Sum(nil)
}

func MD5() func() hash.Hash {
	return func() hash.Hash {
		return md5.New()
	}
}

func SHA1() func() hash.Hash {
	return func() hash.Hash {
		return sha1.New()
	}
}
