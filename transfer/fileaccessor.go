package transfer

import (
	"io"
	"path/filepath"

	"github.com/csat-sub002/imagering/vfs"
)

// VFSFileAccessor implements FileAccessor by reading files out of a root
// directory on a vfs.FS, used by ResponderRead to serve downlink pulls.
type VFSFileAccessor struct {
	fs   vfs.FS
	root string
}

// NewVFSFileAccessor returns a FileAccessor rooted at root on fs.
func NewVFSFileAccessor(fs vfs.FS, root string) *VFSFileAccessor {
	return &VFSFileAccessor{fs: fs, root: root}
}

// ReadChunk reads up to len(buf) bytes of path starting at offset.
func (a *VFSFileAccessor) ReadChunk(path string, offset uint64, buf []byte) (int, error) {
	f, err := a.fs.OpenRandomAccess(filepath.Join(a.root, path))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := f.ReadAt(buf, int64(offset))
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// VFSOutputStreamFactory opens VFSOutputStreams rooted at a directory on
// a vfs.FS, used by ResponderWrite to materialize incoming uplink files.
type VFSOutputStreamFactory struct {
	fs   vfs.FS
	root string
}

// NewVFSOutputStreamFactory returns an OutputStreamFactory rooted at root
// on fs. The root directory is created lazily on first Open.
func NewVFSOutputStreamFactory(fs vfs.FS, root string) *VFSOutputStreamFactory {
	return &VFSOutputStreamFactory{fs: fs, root: root}
}

// Open creates (truncating) path under the factory's root and returns an
// OutputStream writing to it.
func (f *VFSOutputStreamFactory) Open(path string) (OutputStream, error) {
	if err := f.fs.MkdirAll(f.root, 0o755); err != nil {
		return nil, err
	}
	full := filepath.Join(f.root, path)
	wf, err := f.fs.Create(full)
	if err != nil {
		return nil, err
	}
	return &VFSOutputStream{fs: f.fs, file: wf, dir: f.root}, nil
}

// VFSOutputStream writes a reassembled remote file to a vfs.WritableFile.
type VFSOutputStream struct {
	fs   vfs.FS
	file vfs.WritableFile
	dir  string
}

// Write appends data to the underlying file.
func (s *VFSOutputStream) Write(data []byte) error {
	return s.file.Append(data)
}

// Finalize syncs and closes the file, then syncs its containing
// directory so the new file's presence is durable (mirrors the vfs
// package's SyncDir-after-create convention).
func (s *VFSOutputStream) Finalize() error {
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	dirErr := s.fs.SyncDir(s.dir)
	if syncErr != nil {
		return syncErr
	}
	if closeErr != nil {
		return closeErr
	}
	return dirErr
}
