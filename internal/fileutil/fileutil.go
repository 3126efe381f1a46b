package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyVerified streams src to dst and returns the hex SHA256 of the copied
// bytes. The data lands in a sibling temp file first; dst only appears once
// size and digest match the source.
func CopyVerified(src, dst string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return "", fmt.Errorf("source %s is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if written != srcInfo.Size() {
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	digest := hex.EncodeToString(dstHasher.Sum(nil))
	if digest != hex.EncodeToString(srcHasher.Sum(nil)) {
		return "", fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("move into place: %w", err)
	}
	return digest, nil
}

// StageInto copies src into dir under its base name and returns that name
// with the content digest.
func StageInto(src, dir string) (name, digest string, err error) {
	name = filepath.Base(src)
	digest, err = CopyVerified(src, filepath.Join(dir, name))
	if err != nil {
		return "", "", err
	}
	return name, digest, nil
}
