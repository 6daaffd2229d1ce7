package storage

import (
	"github.com/csat-sub002/imagering/vfs"
)

// FileAccessor is a RAM-class Accessor (alignment 1, erase-block 1) whose
// contents are loaded from and saved back to a flat binary file, the way
// RAMAccessor's contents live only in process memory. It lets ground
// tooling (cmd/ringctl, cmd/ringbundle) operate on a captured flash image
// without a NAND transport.
type FileAccessor struct {
	flashStart uint32
	mem        []byte
	fs         vfs.FS
	path       string
}

// LoadFileAccessor reads size bytes of path on fs into memory, starting
// the accessor's address space at flashStart. If path does not exist or
// is shorter than size, the missing bytes are treated as erased (0xFF),
// mirroring a fresh NAND region.
func LoadFileAccessor(fs vfs.FS, path string, flashStart, size uint32) (*FileAccessor, error) {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}

	if fs.Exists(path) {
		f, err := fs.OpenRandomAccess(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		n, err := f.ReadAt(mem, 0)
		if err != nil && n == 0 {
			return nil, err
		}
	}

	return &FileAccessor{flashStart: flashStart, mem: mem, fs: fs, path: path}, nil
}

// Save writes the accessor's full memory back to its backing file.
func (a *FileAccessor) Save() error {
	f, err := a.fs.Create(a.path)
	if err != nil {
		return err
	}
	if _, err := f.Write(a.mem); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Bytes returns the backing slice directly, for read-only inspection.
func (a *FileAccessor) Bytes() []byte { return a.mem }

func (a *FileAccessor) Read(addr uint32, buf []byte) error {
	if err := checkBounds(addr, len(buf), a.flashStart, uint32(len(a.mem))); err != nil {
		return err
	}
	copy(buf, a.mem[addr-a.flashStart:])
	return nil
}

func (a *FileAccessor) Write(addr uint32, buf []byte) error {
	if err := checkBounds(addr, len(buf), a.flashStart, uint32(len(a.mem))); err != nil {
		return err
	}
	copy(a.mem[addr-a.flashStart:], buf)
	return nil
}

func (a *FileAccessor) Erase(addr uint32) error {
	offset := addr - a.flashStart
	if addr < a.flashStart || offset >= uint32(len(a.mem)) {
		return ErrOutOfBounds
	}
	end := offset + a.EraseBlockSize()
	if end > uint32(len(a.mem)) {
		end = uint32(len(a.mem))
	}
	for i := offset; i < end; i++ {
		a.mem[i] = 0xFF
	}
	return nil
}

func (a *FileAccessor) Alignment() uint32 { return 1 }
func (a *FileAccessor) FlashMemorySize() uint32 { return uint32(len(a.mem)) }
func (a *FileAccessor) FlashStartAddress() uint32 { return a.flashStart }
func (a *FileAccessor) EraseBlockSize() uint32 { return 1 }
