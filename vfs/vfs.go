// Package vfs abstracts the filesystem the ground-side tooling runs on.
//
// The storage.FileAccessor (captured flash images) and the transfer
// package's file-backed sinks are built on this interface so they can
// use the real OS filesystem in production and an in-memory or
// fault-injecting implementation in tests. The flight target itself
// never touches a filesystem; this seam exists purely for the ground
// half of the link.
package vfs

import "os"

// FS is the filesystem interface.
type FS interface {
	// Create creates a new writable file.
	// If the file already exists, it is truncated.
	Create(name string) (WritableFile, error)

	// OpenRandomAccess opens an existing file for random access reading.
	OpenRandomAccess(name string) (RandomAccessFile, error)

	// Exists returns true if the file exists.
	Exists(name string) bool

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// SyncDir syncs a directory so metadata changes are durable. This is
	// required after creating a file to ensure its presence survives a
	// host crash.
	SyncDir(path string) error
}

// WritableFile is a file that can be written to.
type WritableFile interface {
	// Write writes len(p) bytes to the file.
	Write(p []byte) (int, error)

	// Append appends data to the file.
	// For most implementations, this is the same as Write.
	Append(data []byte) error

	// Sync flushes the file contents to stable storage.
	Sync() error

	// Close closes the file.
	Close() error
}

// RandomAccessFile is a file that can be read at any offset.
type RandomAccessFile interface {
	// ReadAt reads len(p) bytes at offset off.
	ReadAt(p []byte, off int64) (int, error)

	// Size returns the file size.
	Size() int64

	// Close closes the file.
	Close() error
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &osRandomAccessFile{f: f, size: info.Size()}, nil
}

func (fs *osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (fs *osFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *osFS) SyncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	syncErr := dir.Sync()
	closeErr := dir.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// osWritableFile wraps os.File for the WritableFile interface.
type osWritableFile struct {
	f *os.File
}

func (wf *osWritableFile) Write(p []byte) (int, error) {
	return wf.f.Write(p)
}

func (wf *osWritableFile) Append(data []byte) error {
	_, err := wf.f.Write(data)
	return err
}

func (wf *osWritableFile) Sync() error {
	return wf.f.Sync()
}

func (wf *osWritableFile) Close() error {
	return wf.f.Close()
}

// osRandomAccessFile wraps os.File for the RandomAccessFile interface.
type osRandomAccessFile struct {
	f    *os.File
	size int64
}

func (rf *osRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.ReadAt(p, off)
}

func (rf *osRandomAccessFile) Size() int64 {
	return rf.size
}

func (rf *osRandomAccessFile) Close() error {
	return rf.f.Close()
}
