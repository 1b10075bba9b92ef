package fat

import "io"

// ClusterID identifies a cluster in the data region. Cluster numbering
// starts at 2; 0 means "no cluster" (an empty file or a directory entry
// that has never been written to).
type ClusterID uint32

// ClusterAllocator is the external contract the directory layer consumes
// for chain allocation, extension, freeing and flushing. Concrete FAT12/16/32
// implementations live outside this package (see internal/fattable).
type ClusterAllocator interface {
	// TryGetFreeCluster returns an unused cluster and true, or false when
	// the volume is full.
	TryGetFreeCluster() (ClusterID, bool)
	// SetEndOfChain marks cluster as the end of its chain.
	SetEndOfChain(cluster ClusterID) error
	// FreeChain releases every cluster in the chain starting at first. A
	// first of 0 is a no-op.
	FreeChain(first ClusterID) error
	// Flush persists FAT table changes to the underlying device. Called
	// after every mutation of directory structure, including on the error
	// path.
	Flush() error
	// ClusterStream opens a chain starting at first as a byte stream,
	// lazily extending it on write. A nonzero maxLength (a file's recorded
	// size) caps the stream's initial length below the chain's capacity;
	// 0 leaves it at the full capacity, as for directory streams. Writes
	// past the end extend the stream either way.
	ClusterStream(first ClusterID, maxLength uint32, access AccessMode) (ClusterStream, error)
}

// AccessMode controls whether a ClusterStream permits writes.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessReadWrite
)

// ClusterStream presents a cluster chain as a seekable byte stream. Writing
// past the current length extends the chain lazily.
type ClusterStream interface {
	io.ReadWriteSeeker
	// FirstCluster returns the chain's first cluster, or 0 if the chain is
	// still empty (nothing has been written yet).
	FirstCluster() ClusterID
	// Truncate sets the stream's logical length, freeing or extending the
	// chain as needed.
	Truncate(size uint32) error
	// Len returns the stream's current logical length in bytes.
	Len() uint32
}
