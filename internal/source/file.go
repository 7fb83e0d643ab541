// Access to the telemetry source: real files, a simulated file for tests, and change notification
package source

import (
	"errors"
	"fmt"
	"os"
	"santasleigh/internal/checkpoint"

	"golang.org/x/sys/unix"
)

var ErrUnreadable = errors.New("source is not readable")

type FileOpener struct {
	path string
}

type fileHandle struct {
	file     *os.File
	identity checkpoint.Identity
}

func NewFileOpener(path string) (opener *FileOpener) {
	opener = &FileOpener{path: path}
	return
}

func (opener *FileOpener) Path() string {
	return opener.path
}

func (opener *FileOpener) Open() (handle Handle, err error) {
	file, err := os.Open(opener.path)
	if err != nil {
		return
	}

	var st unix.Stat_t
	err = unix.Fstat(int(file.Fd()), &st)
	if err != nil {
		file.Close()
		err = fmt.Errorf("failed to stat opened source: %w", err)
		return
	}

	handle = &fileHandle{
		file:     file,
		identity: identityOf(&st),
	}
	return
}

func (opener *FileOpener) Stat() (identity checkpoint.Identity, size int64, err error) {
	var st unix.Stat_t
	err = unix.Stat(opener.path, &st)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			err = fmt.Errorf("%s: %w", opener.path, os.ErrNotExist)
		}
		return
	}
	identity = identityOf(&st)
	size = st.Size
	return
}

func (handle *fileHandle) Identity() checkpoint.Identity {
	return handle.identity
}

func (handle *fileHandle) Size() (size int64, err error) {
	info, err := handle.file.Stat()
	if err != nil {
		return
	}
	size = info.Size()
	return
}

func (handle *fileHandle) ReadAt(p []byte, off int64) (n int, err error) {
	n, err = handle.file.ReadAt(p, off)
	return
}

func (handle *fileHandle) Close() error {
	return handle.file.Close()
}

func identityOf(st *unix.Stat_t) (identity checkpoint.Identity) {
	identity = checkpoint.Identity{
		Device: uint64(st.Dev),
		Inode:  uint64(st.Ino),
	}
	return
}

// Startup check. Permission problems are fatal (ErrUnreadable). A missing file is not an error, the tailer waits for it.
func Probe(path string) (err error) {
	file, err := os.Open(path)
	if err == nil {
		file.Close()
		return
	}
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	err = fmt.Errorf("%w: %v", ErrUnreadable, err)
	return
}
