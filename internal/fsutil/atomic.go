// Durable file helpers shared by the checkpoint and spill stores
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const TempSuffix string = ".tmp"

// Replaces path with data so readers see either the old or the new content, never a mix.
// Write temp, fsync, rename over target, fsync parent directory.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tempPath := path + TempSuffix

	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		err = fmt.Errorf("failed to create temporary file: %w", err)
		return
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		err = fmt.Errorf("failed to write temporary file: %w", err)
		return
	}
	err = file.Sync()
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		err = fmt.Errorf("failed to sync temporary file: %w", err)
		return
	}
	err = file.Close()
	if err != nil {
		os.Remove(tempPath)
		err = fmt.Errorf("failed to close temporary file: %w", err)
		return
	}

	err = os.Rename(tempPath, path)
	if err != nil {
		os.Remove(tempPath)
		err = fmt.Errorf("failed to move file into place: %w", err)
		return
	}

	err = SyncDir(filepath.Dir(path))
	return
}

// Flushes directory metadata (renames, unlinks) to disk
func SyncDir(dir string) (err error) {
	handle, err := os.Open(dir)
	if err != nil {
		err = fmt.Errorf("failed to open directory for sync: %w", err)
		return
	}
	defer handle.Close()

	err = handle.Sync()
	if err != nil {
		err = fmt.Errorf("failed to sync directory '%s': %w", dir, err)
	}
	return
}

// Creates dir if missing and confirms a file can be created and removed inside it
func ProbeWritable(dir string) (err error) {
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		err = fmt.Errorf("failed to create directory '%s': %w", dir, err)
		return
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		err = fmt.Errorf("directory '%s' is not writable: %w", dir, err)
		return
	}
	name := probe.Name()
	probe.Close()

	err = os.Remove(name)
	if err != nil {
		err = fmt.Errorf("failed to remove probe file in '%s': %w", dir, err)
	}
	return
}
