// Package disk owns the database file: page-granular block I/O and the
// allocation of logical page ids over bitmap-managed extents.
package disk

import (
	"io"
	"os"
	"sync"

	"github.com/juju/errors"
)

// BlockFile reads and writes fixed-size pages against one regular file.
type BlockFile struct {
	mu       sync.RWMutex
	file     *os.File
	filePath string
	pageSize int
}

// NewBlockFile creates a handle for filePath; the file is opened lazily.
func NewBlockFile(filePath string, pageSize int) *BlockFile {
	return &BlockFile{
		filePath: filePath,
		pageSize: pageSize,
	}
}

// Open opens the block file, creating it when absent.
func (bf *BlockFile) Open() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.openLocked()
}

func (bf *BlockFile) openLocked() error {
	if bf.file != nil {
		return nil
	}
	file, err := os.OpenFile(bf.filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return errors.Annotatef(err, "open block file %s", bf.filePath)
	}
	bf.file = file
	return nil
}

// Close closes the block file.
func (bf *BlockFile) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.file != nil {
		err := bf.file.Close()
		bf.file = nil
		return errors.Trace(err)
	}
	return nil
}

// ReadPage reads the physical page into buf. Reads past the end of the file,
// and the tail of short reads, come back zero-filled.
func (bf *BlockFile) ReadPage(physicalPageId int64, buf []byte) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if err := bf.openLocked(); err != nil {
		return err
	}

	offset := physicalPageId * int64(bf.pageSize)
	n, err := bf.file.ReadAt(buf[:bf.pageSize], offset)
	if err != nil && err != io.EOF {
		return errors.Annotatef(err, "read physical page %d", physicalPageId)
	}
	for i := n; i < bf.pageSize; i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes the physical page.
func (bf *BlockFile) WritePage(physicalPageId int64, content []byte) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if err := bf.openLocked(); err != nil {
		return err
	}

	offset := physicalPageId * int64(bf.pageSize)
	if _, err := bf.file.WriteAt(content[:bf.pageSize], offset); err != nil {
		return errors.Annotatef(err, "write physical page %d", physicalPageId)
	}
	return nil
}

// Sync flushes the file to disk.
func (bf *BlockFile) Sync() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.file != nil {
		return errors.Trace(bf.file.Sync())
	}
	return nil
}

// Size returns the current file size in bytes, -1 on error.
func (bf *BlockFile) Size() int64 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	info, err := os.Stat(bf.filePath)
	if err != nil {
		return -1
	}
	return info.Size()
}
