package project

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
)

// Digest is a SHA-256 value, compatible with source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by deps. The order of deps is significant.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// DigestBytes hashes b.
func DigestBytes(b []byte) Digest {
	return sha256.Sum256(b)
}

// DigestStrings hashes the strings in order. Each string is length-prefixed
// so that ("ab", "c") and ("a", "bc") differ.
func DigestStrings(parts ...string) Digest {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(p))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// DigestFS hashes every regular file of fsys together with its path. Files
// are visited in lexical order, so the digest only changes when a file is
// added, removed, renamed or edited.
func DigestFS(fsys fs.FS) (Digest, error) {
	var acc []Digest
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		acc = append(acc, DigestStrings(path), DigestBytes(data))
		return nil
	})
	if err != nil {
		return Digest{}, err
	}
	return Combine(DigestStrings("fs"), acc...), nil
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
