// Package checksum verifies a payload file against the hash its publisher
// supplied.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/types"
)

// ErrChecksumMismatch indicates the computed hash does not match the expected one.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError describes a failed comparison. It wraps ErrChecksumMismatch.
type ChecksumError struct {
	Filename  string
	Algorithm types.HashAlgorithm
	Expected  string
	Got       string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s verification failed for %s (expected %s, got %s)",
		e.Algorithm, e.Filename, e.Expected, e.Got)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Expected is a parsed expected-hash value.
type Expected struct {
	Algorithm types.HashAlgorithm
	Hex       string
}

// Parse interprets an expected hash. An optional "md5:" or "sha256:" prefix
// selects the algorithm; otherwise the length decides (32 hex chars is MD5,
// 64 is SHA-256). The hex digits are lowercased.
func Parse(s string) (Expected, error) {
	s = strings.TrimSpace(s)
	var algo types.HashAlgorithm
	if i := strings.IndexByte(s, ':'); i > 0 {
		algo = types.HashAlgorithm(strings.ToLower(s[:i]))
		if err := algo.Validate(); err != nil {
			return Expected{}, err
		}
		s = s[i+1:]
	}
	s = strings.ToLower(s)

	if algo == "" {
		switch len(s) {
		case types.HashMD5.HexLen():
			algo = types.HashMD5
		case types.HashSHA256.HexLen():
			algo = types.HashSHA256
		default:
			return Expected{}, fmt.Errorf("hash %q has %d hex digits, want 32 (md5) or 64 (sha256)", s, len(s))
		}
	}
	if len(s) != algo.HexLen() {
		return Expected{}, fmt.Errorf("%s hash must be %d hex digits, got %d", algo, algo.HexLen(), len(s))
	}
	if !isHex(s) {
		return Expected{}, fmt.Errorf("hash %q is not hexadecimal", s)
	}
	return Expected{Algorithm: algo, Hex: s}, nil
}

// Verify hashes the file at path and compares it with expected.
//
// An empty expected value skips verification and reports true. A mismatch
// returns false together with an IntegrityError wrapping a *ChecksumError.
// A malformed expected value is a ConfigurationError and an unreadable file
// a FilesystemError.
func Verify(path, expected string) (bool, error) {
	if strings.TrimSpace(expected) == "" {
		return true, nil
	}

	exp, err := Parse(expected)
	if err != nil {
		return false, failure.Wrap(failure.KindConfiguration, "verify", err)
	}

	got, err := Compute(path, exp.Algorithm)
	if err != nil {
		return false, failure.Wrap(failure.KindFilesystem, "verify", err)
	}

	if got != exp.Hex {
		return false, failure.Wrap(failure.KindIntegrity, "verify", &ChecksumError{
			Filename:  path,
			Algorithm: exp.Algorithm,
			Expected:  exp.Hex,
			Got:       got,
		})
	}
	return true, nil
}

// Compute returns the lowercase hex digest of the file at path.
func Compute(path string, algo types.HashAlgorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sums computes every supported digest of the file in one pass.
func Sums(path string) (map[types.HashAlgorithm]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	md5h, shah := md5.New(), sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5h, shah), f); err != nil {
		return nil, fmt.Errorf("hashing file %s: %w", path, err)
	}
	return map[types.HashAlgorithm]string{
		types.HashMD5:    hex.EncodeToString(md5h.Sum(nil)),
		types.HashSHA256: hex.EncodeToString(shah.Sum(nil)),
	}, nil
}

func newHash(algo types.HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case types.HashMD5:
		return md5.New(), nil
	case types.HashSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
