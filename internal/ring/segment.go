package ring

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// Segment is a named, mmap'd region backing exactly one Header plus
// its slot array. Producer and Consumer processes each open the same
// named segment independently; the OS page cache, not this package,
// is what makes the memory shared.
type Segment struct {
	mapping mmap.MMap
	file    *os.File
}

// Path returns the backing file's path for a given shm directory and
// segment name, mirroring the named-segment convention of POSIX
// shared memory (spec §4.1's "join_or_create(name)").
func Path(dir, name string) string {
	return filepath.Join(dir, name+".ring")
}

// CreateOrJoin opens the named segment under dir, creating it with
// room for n slots of size elemSize if it doesn't exist, or validating
// an existing segment's size if it does. A size mismatch on an
// existing segment is fatal (spec §7: two processes disagreeing about
// N is a misconfiguration, not a recoverable condition).
func CreateOrJoin(dir, name string, n, elemSize int, useHugePages bool) (*Segment, error) {
	if n <= 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two", n)
	}
	want := int64(HeaderSize + n*elemSize)
	path := Path(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ring: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: stat %s: %w", path, err)
	}

	switch {
	case info.Size() == 0:
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("ring: truncate %s to %d bytes: %w", path, want, err)
		}
	case info.Size() != want:
		f.Close()
		return nil, fmt.Errorf("ring: existing segment %s is %d bytes, want %d (capacity/element-size mismatch between producer and consumer)", path, info.Size(), want)
	}

	var m mmap.MMap
	if useHugePages {
		// mmap-go's flag enum doesn't expose MAP_HUGETLB, so the
		// huge-page request goes through the raw syscall. Best-effort:
		// fall back to a normal mapping if the kernel has no huge
		// pages reserved for this process.
		raw, hugeErr := unix.Mmap(int(f.Fd()), 0, int(want),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_HUGETLB)
		if hugeErr == nil {
			m = mmap.MMap(raw)
		}
	}
	if m == nil {
		var err error
		m, err = mmap.MapRegion(f, int(want), mmap.RDWR, 0, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("ring: mmap %s: %w", path, err)
		}
	}

	return &Segment{mapping: m, file: f}, nil
}

// Close unmaps and closes the segment's backing file. It does not
// delete the file — the segment is meant to outlive any single
// process's attachment to it.
func (s *Segment) Close() error {
	if err := s.mapping.Unmap(); err != nil {
		s.file.Close()
		return fmt.Errorf("ring: unmap: %w", err)
	}
	return s.file.Close()
}

func (s *Segment) bytes() []byte { return s.mapping }

// header reinterprets the first HeaderSize bytes of the mapping as a
// *Header. The mapping is page-aligned by the kernel, which satisfies
// Header's own alignment requirements for atomic access.
func (s *Segment) header() *Header {
	return (*Header)(unsafe.Pointer(&s.bytes()[0]))
}

// slots reinterprets the mapping's slot region as a []T of length n.
// Callers must pass the same n and T that CreateOrJoin was sized with;
// there is no runtime type tag in the segment to check this against,
// matching the original's POD transport contract (spec §4.1).
func slotsOf[T any](s *Segment, n int) []T {
	base := unsafe.Pointer(&s.bytes()[HeaderSize])
	return unsafe.Slice((*T)(base), n)
}

// Open builds a Ring[T] view over an already-created-or-joined
// segment with room for n elements of type T.
func Open[T any](s *Segment, n int) (*Ring[T], error) {
	return newRing(s.header(), slotsOf[T](s, n))
}
