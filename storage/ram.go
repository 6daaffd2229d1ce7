package storage

// RAMAccessor is a direct in-memory Accessor: alignment 1, erase-block 1.
// It backs unit tests and any RAM-class target where there is no program
// unit larger than one byte.
type RAMAccessor struct {
	flashStart uint32
	mem        []byte
}

// NewRAMAccessor allocates a RAMAccessor covering [flashStart,
// flashStart+size), initialized to 0xFF (the erased state of flash
// media, so reconstruction code exercised against this accessor behaves
// the same way it would against real NAND/NOR).
func NewRAMAccessor(flashStart, size uint32) *RAMAccessor {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &RAMAccessor{flashStart: flashStart, mem: mem}
}

// Format resets every byte to 0xFF, as if the whole region had been
// erased.
func (a *RAMAccessor) Format() {
	for i := range a.mem {
		a.mem[i] = 0xFF
	}
}

// Bytes returns the backing slice directly, for tests that want to
// inspect or corrupt specific offsets.
func (a *RAMAccessor) Bytes() []byte { return a.mem }

func (a *RAMAccessor) Read(addr uint32, buf []byte) error {
	if err := checkBounds(addr, len(buf), a.flashStart, uint32(len(a.mem))); err != nil {
		return err
	}
	copy(buf, a.mem[addr-a.flashStart:])
	return nil
}

func (a *RAMAccessor) Write(addr uint32, buf []byte) error {
	if err := checkBounds(addr, len(buf), a.flashStart, uint32(len(a.mem))); err != nil {
		return err
	}
	copy(a.mem[addr-a.flashStart:], buf)
	return nil
}

func (a *RAMAccessor) Erase(addr uint32) error {
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

func (a *RAMAccessor) Alignment() uint32 { return 1 }
func (a *RAMAccessor) FlashMemorySize() uint32 { return uint32(len(a.mem)) }
func (a *RAMAccessor) FlashStartAddress() uint32 { return a.flashStart }
func (a *RAMAccessor) EraseBlockSize() uint32 { return 1 }
