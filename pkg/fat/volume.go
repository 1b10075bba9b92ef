package fat

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// Logger is the minimal leveled-logging surface Volume uses. It is
// satisfied structurally by *internal/logger.Logger; passing nil disables
// logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Volume is the concrete realization of the external interface spec.md
// §4.6 describes abstractly: it owns the code page, the cluster allocator,
// the root directory, and a directory cache keyed by first-cluster number.
type Volume struct {
	mu sync.RWMutex

	boot     *BootSector
	fatType  FATType
	cp       *CodePage
	loc      *time.Location
	alloc    ClusterAllocator
	log      Logger
	readOnly bool

	root *Directory

	cacheMu sync.Mutex
	cache   map[uint32]*Directory // keyed by first-cluster; root keyed by 0
}

// Params groups the fields needed to Open or Format a volume, beyond the
// block device and allocator (which are supplied by internal/blockdev and
// internal/fattable respectively — this package only consumes their
// narrow contracts).
type Params struct {
	CodePage *CodePage
	Location *time.Location
	ReadOnly bool
	Logger   Logger
}

func (p Params) normalized() Params {
	if p.CodePage == nil {
		p.CodePage = DefaultCodePage()
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	if p.Logger == nil {
		p.Logger = nopLogger{}
	}
	return p
}

// OpenVolume builds a Volume from an already-parsed boot sector, a cluster
// allocator for that geometry, and the root directory's cluster stream
// (FAT32) or fixed-size region stream (FAT12/16) — both presented uniformly
// as a ClusterStream by the caller.
func OpenVolume(boot *BootSector, alloc ClusterAllocator, rootStream ClusterStream, params Params) (*Volume, error) {
	p := params.normalized()
	root, err := LoadDirectory(rootStream, p.CodePage, p.Location, alloc)
	if err != nil {
		return nil, fmt.Errorf("loading root directory: %w", err)
	}
	root.isRoot = true

	v := &Volume{
		boot:     boot,
		fatType:  boot.Type(),
		cp:       p.CodePage,
		loc:      p.Location,
		alloc:    alloc,
		log:      p.Logger,
		readOnly: p.ReadOnly,
		root:     root,
		cache:    map[uint32]*Directory{0: root},
	}
	v.log.Infof("opened %s volume, %d clusters", v.fatType, boot.ClusterCount())
	return v, nil
}

// CanWrite reports whether mutating operations are permitted.
func (v *Volume) CanWrite() bool { return !v.readOnly }

// CodePage returns the volume's short-name code page.
func (v *Volume) CodePage() *CodePage { return v.cp }

// FATType returns the volume's cluster-numbering width.
func (v *Volume) FATType() FATType { return v.fatType }

func (v *Volume) checkWritable() error {
	if v.readOnly {
		return ErrReadOnly
	}
	return nil
}

// directoryFor returns the cached Directory for a first-cluster number,
// loading it on first access. Resolving a path only ever takes v.mu for
// reading, so the cache itself needs its own lock: two lookups racing on an
// uncached directory must not both execute the plain-map write below.
func (v *Volume) directoryFor(cluster uint32) (*Directory, error) {
	v.cacheMu.Lock()
	if d, ok := v.cache[cluster]; ok {
		v.cacheMu.Unlock()
		return d, nil
	}
	v.cacheMu.Unlock()

	stream, err := v.alloc.ClusterStream(ClusterID(cluster), 0, AccessReadWrite)
	if err != nil {
		return nil, err
	}
	d, err := LoadDirectory(stream, v.cp, v.loc, v.alloc)
	if err != nil {
		return nil, err
	}

	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	if existing, ok := v.cache[cluster]; ok {
		return existing, nil
	}
	v.cache[cluster] = d
	return d, nil
}

func splitPath(p string) []string {
	p = path.Clean("/" + filepathToSlash(p))
	if p == "/" || p == "." {
		return nil
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// ResolvePath walks path components from the root, returning the directory
// containing the final component and, unless the path is "/", the entry
// itself with its position in that directory.
func (v *Volume) ResolvePath(p string) (dir *Directory, entry *DirEntry, position uint32, err error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.resolvePath(p)
}

// resolvePath is ResolvePath without locking, for callers that already hold
// v.mu.
func (v *Volume) resolvePath(p string) (dir *Directory, entry *DirEntry, position uint32, err error) {
	parts := splitPath(p)
	current := v.root
	if len(parts) == 0 {
		return current, nil, 0, nil
	}

	for i, part := range parts {
		name, genErr := GenerateName(part, v.cp, nil)
		if genErr != nil {
			return nil, nil, 0, fmt.Errorf("%w: %q", ErrInvalidName, part)
		}
		pos, ok := current.Find(name)
		if !ok {
			return nil, nil, 0, fmt.Errorf("%w: %q", ErrNotFound, p)
		}
		e, _ := current.GetEntry(pos)
		if i == len(parts)-1 {
			return current, &e, pos, nil
		}
		if !e.Attributes.IsDir() {
			return nil, nil, 0, fmt.Errorf("%w: %q", ErrNotDirectory, part)
		}
		next, derr := v.directoryFor(e.FirstCluster)
		if derr != nil {
			return nil, nil, 0, derr
		}
		current = next
	}
	return current, nil, 0, nil
}

// resolveDir resolves p to the Directory it names, not the directory
// containing p's final component: resolvePath always returns the latter, so
// any caller that wants to add to or list a named directory (as opposed to
// the entry describing it) must additionally descend into the entry's own
// cluster chain when p isn't the root.
func (v *Volume) resolveDir(p string) (*Directory, error) {
	dir, entry, _, err := v.resolvePath(p)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return dir, nil
	}
	if !entry.Attributes.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotDirectory, p)
	}
	return v.directoryFor(entry.FirstCluster)
}

// Readdirnames lists the display names of a directory's live entries.
func (v *Volume) Readdirnames(p string) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	dir, err := v.resolveDir(p)
	if err != nil {
		return nil, err
	}
	return dir.ListNames(), nil
}

// Stat resolves p and returns its directory entry.
func (v *Volume) Stat(p string) (DirEntry, error) {
	_, entry, _, err := v.ResolvePath(p)
	if err != nil {
		return DirEntry{}, err
	}
	if entry == nil {
		return DirEntry{Attributes: AttrDir}, nil
	}
	return *entry, nil
}

// Mkdir creates a directory at p; its parent must already exist.
func (v *Volume) Mkdir(p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return err
	}

	parentPath, leaf := path.Split(strings.TrimRight(filepathToSlash(p), "/"))
	parentDir, err := v.resolveDir(parentPath)
	if err != nil {
		return err
	}
	name, err := GenerateName(leaf, v.cp, func(s string) bool {
		_, ok := parentDir.FindShort(s)
		return ok
	})
	if err != nil {
		return err
	}
	_, _, err = parentDir.CreateChildDirectory(name)
	if err != nil {
		return err
	}
	v.log.Debugf("mkdir %q -> short name %q", p, name.Short)
	return nil
}

// Remove deletes the entry at p. Directories must be empty.
func (v *Volume) Remove(p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return err
	}

	dir, entry, position, err := v.resolvePath(p)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: cannot remove root", ErrInvalidName)
	}
	if entry.Attributes.IsDir() {
		child, err := v.directoryFor(entry.FirstCluster)
		if err != nil {
			return err
		}
		if len(child.ListNames()) > 0 {
			return fmt.Errorf("%w: directory %q is not empty", ErrAlreadyExists, p)
		}
	}
	if err := dir.DeleteEntry(position, true); err != nil {
		return err
	}
	v.log.Debugf("removed %q", p)
	return nil
}

// OpenFile resolves or creates a file at p per mode, returning the entry
// and a ClusterStream for its data.
func (v *Volume) OpenFile(p string, mode OpenMode) (DirEntry, ClusterStream, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if mode != ModeOpen {
		if err := v.checkWritable(); err != nil {
			return DirEntry{}, nil, err
		}
	}

	parentPath, leaf := path.Split(strings.TrimRight(filepathToSlash(p), "/"))
	parentDir, err := v.resolveDir(parentPath)
	if err != nil {
		return DirEntry{}, nil, err
	}

	var name Name
	if mode == ModeOpen {
		n, genErr := GenerateName(leaf, v.cp, nil)
		if genErr != nil {
			return DirEntry{}, nil, genErr
		}
		name = n
	} else {
		n, genErr := GenerateName(leaf, v.cp, func(s string) bool {
			_, ok := parentDir.FindShort(s)
			return ok
		})
		if genErr != nil {
			return DirEntry{}, nil, genErr
		}
		name = n
	}

	entry, position, err := parentDir.OpenFile(name, mode)
	if err != nil {
		return DirEntry{}, nil, err
	}
	stream, err := v.alloc.ClusterStream(ClusterID(entry.FirstCluster), entry.Size, AccessReadWrite)
	if err != nil {
		return DirEntry{}, nil, err
	}
	return entry, &syncedStream{ClusterStream: stream, dir: parentDir, position: position}, nil
}

// syncedStream wraps a ClusterStream so that every write or truncate writes
// the resulting length and (for a freshly allocated file) first cluster
// back into the owning directory entry. A ClusterStream only tracks this
// state in memory; without this, a file's size and cluster chain would
// never be visible to Stat/Readdirnames after a plain Write.
type syncedStream struct {
	ClusterStream
	dir      *Directory
	position uint32
}

func (s *syncedStream) Write(p []byte) (int, error) {
	n, err := s.ClusterStream.Write(p)
	if n > 0 {
		if serr := s.sync(); serr != nil && err == nil {
			err = serr
		}
	}
	return n, err
}

func (s *syncedStream) Truncate(size uint32) error {
	if err := s.ClusterStream.Truncate(size); err != nil {
		return err
	}
	return s.sync()
}

func (s *syncedStream) sync() error {
	entry, ok := s.dir.GetEntry(s.position)
	if !ok {
		return fmt.Errorf("%w: entry vanished under open stream", ErrNotFound)
	}
	entry.Size = s.Len()
	entry.FirstCluster = uint32(s.FirstCluster())
	return s.dir.UpdateEntry(s.position, entry)
}

// Truncate implements the higher layer's emulation of the core's rejected
// Truncate open mode (per §9's Open Ambiguity note): open-or-create, then
// set the stream's length.
func (v *Volume) Truncate(p string, size uint32) error {
	_, stream, err := v.OpenFile(p, ModeOpenOrCreate)
	if err != nil {
		return err
	}
	return stream.Truncate(size)
}

// Rename moves/renames an entry via delete-then-add, per §4.4's note that
// renaming is not a first-class Directory operation.
func (v *Volume) Rename(oldPath, newPath string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkWritable(); err != nil {
		return err
	}

	oldDir, oldEntry, oldPos, err := v.resolvePath(oldPath)
	if err != nil {
		return err
	}
	if oldEntry == nil {
		return fmt.Errorf("%w: cannot rename root", ErrInvalidName)
	}

	newParentPath, leaf := path.Split(strings.TrimRight(filepathToSlash(newPath), "/"))
	newDir, err := v.resolveDir(newParentPath)
	if err != nil {
		return err
	}

	newName, err := GenerateName(leaf, v.cp, func(s string) bool {
		_, ok := newDir.FindShort(s)
		return ok
	})
	if err != nil {
		return err
	}

	moved := *oldEntry
	moved.Name = newName
	newPos, err := newDir.AddEntry(moved)
	if err != nil {
		return err
	}
	if err := oldDir.DeleteEntry(oldPos, false); err != nil {
		return err
	}
	if moved.Attributes.IsDir() && newDir.ownFirstCluster() != oldDir.ownFirstCluster() {
		child, err := v.directoryFor(moved.FirstCluster)
		if err != nil {
			return err
		}
		if err := child.Reparent(newDir, newPos); err != nil {
			return err
		}
	}
	v.log.Debugf("renamed %q -> %q", oldPath, newPath)
	return nil
}

// Flush persists pending FAT table changes.
func (v *Volume) Flush() error {
	return v.alloc.Flush()
}
