package flash

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// ImagePerm is the permission used when a flash image is created.
const ImagePerm = 0644

// File is a Device backed by an image file on disk. The image is locked for the
// lifetime of the File so two simulators never program the same image.
type File struct {
	f        *os.File
	lock     *flock.Flock
	pageSize uint32
	boundary uint32
}

var _ Device = (*File)(nil)

// OpenFile opens or creates the image at path. A new or short image is extended
// with erased bytes up to boundary.
func OpenFile(path string, pageSize, boundary uint32) (*File, error) {
	lock := flock.New(path + ".lock")
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock flash image %s: %w", path, err)
	}
	if !held {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, ImagePerm)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open flash image %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, fmt.Errorf("failed to stat flash image %s: %w", path, err)
	}
	if size := fi.Size(); size < int64(boundary) {
		fill := bytes.Repeat([]byte{0xFF}, int(int64(boundary)-size))
		if _, err := f.WriteAt(fill, size); err != nil {
			f.Close()
			lock.Unlock()
			return nil, fmt.Errorf("failed to extend flash image %s: %w", path, err)
		}
	}

	return &File{
		f:        f,
		lock:     lock,
		pageSize: pageSize,
		boundary: boundary,
	}, nil
}

// PageSize returns the erase granularity.
func (d *File) PageSize() uint32 { return d.pageSize }

// Boundary returns the region size.
func (d *File) Boundary() uint32 { return d.boundary }

// ErasePage fills the page at addr with 0xFF.
func (d *File) ErasePage(addr uint32) error {
	if addr%d.pageSize != 0 || addr+d.pageSize > d.boundary {
		return fmt.Errorf("erase %#x: %w", addr, ErrOutOfRange)
	}
	if _, err := d.f.WriteAt(bytes.Repeat([]byte{0xFF}, int(d.pageSize)), int64(addr)); err != nil {
		return fmt.Errorf("erase %#x: %w", addr, err)
	}
	return nil
}

// ProgramByte writes v at addr, which must be erased.
func (d *File) ProgramByte(addr uint32, v byte) error {
	if addr >= d.boundary {
		return fmt.Errorf("program %#x: %w", addr, ErrOutOfRange)
	}

	var cur [1]byte
	if _, err := d.f.ReadAt(cur[:], int64(addr)); err != nil {
		return fmt.Errorf("program %#x: %w", addr, err)
	}
	if cur[0] != 0xFF {
		return fmt.Errorf("program %#x: %w", addr, ErrNotErased)
	}

	cur[0] = v
	if _, err := d.f.WriteAt(cur[:], int64(addr)); err != nil {
		return fmt.Errorf("program %#x: %w", addr, err)
	}
	return nil
}

// FinalizeProgram flushes the image to disk.
func (d *File) FinalizeProgram(addr uint32) error {
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("finalize %#x: %w", addr, err)
	}
	return nil
}

// ReadAt implements io.ReaderAt within the region.
func (d *File) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(d.boundary) {
		return 0, io.EOF
	}
	if rest := int64(d.boundary) - off; int64(len(p)) > rest {
		n, err := d.f.ReadAt(p[:rest], off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return d.f.ReadAt(p, off)
}

// Close closes the image and releases its lock.
func (d *File) Close() error {
	err := d.f.Close()
	if uerr := d.lock.Unlock(); uerr != nil {
		logrus.WithError(uerr).Warn("failed to release flash image lock")
	}
	return err
}
