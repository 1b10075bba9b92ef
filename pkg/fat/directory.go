package fat

import (
	"fmt"
	"io"
	"time"
)

// OpenMode selects the create/open semantics of Directory.OpenFile.
type OpenMode int

const (
	ModeOpen OpenMode = iota
	ModeOpenOrCreate
	ModeCreateNew
	ModeCreate
)

// Directory is the live, in-memory view of one directory's entry stream: a
// byte stream plus two case-insensitive name indexes and a free-slot
// allocator, kept consistent with the on-disk bytes after every mutation.
type Directory struct {
	stream ClusterStream
	cp     *CodePage
	loc    *time.Location
	alloc  ClusterAllocator

	entries    map[uint32]DirEntry
	shortIndex map[string]uint32
	fullIndex  map[string]uint32
	free       *freeTable

	endOfEntries uint32

	selfEntryPos   int
	parentEntryPos int
	selfEntry      *DirEntry
	parentEntry    *DirEntry

	parent         *Directory
	parentEntryID  uint32
	isRoot         bool
}

// LoadDirectory scans stream (rewound to its start) into a Directory.
func LoadDirectory(stream ClusterStream, cp *CodePage, loc *time.Location, alloc ClusterAllocator) (*Directory, error) {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	d := &Directory{
		stream:         stream,
		cp:             cp,
		loc:            loc,
		alloc:          alloc,
		entries:        map[uint32]DirEntry{},
		shortIndex:     map[string]uint32{},
		fullIndex:      map[string]uint32{},
		free:           newFreeTable(),
		selfEntryPos:   -1,
		parentEntryPos: -1,
	}

	runStart := -1
	runLen := 0
	flushRun := func() error {
		if runStart >= 0 && runLen > 0 {
			if err := d.free.addFreeRange(uint32(runStart), runLen); err != nil {
				return err
			}
		}
		runStart, runLen = -1, 0
		return nil
	}
	markFree := func(pos int) error {
		if runStart >= 0 && pos == runStart+runLen*32 {
			runLen++
			return nil
		}
		if err := flushRun(); err != nil {
			return err
		}
		runStart, runLen = pos, 1
		return nil
	}

	pos := 0
	ended := false
	for pos+32 <= len(buf) {
		name, consumed, kind, derr := DecodeName(buf[pos:], cp)
		if derr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, derr)
		}
		switch kind {
		case KindNull:
			d.endOfEntries = uint32(pos)
			ended = true
		case KindDeleted:
			if err := markFree(pos); err != nil {
				return nil, err
			}
			pos += consumed
			continue
		case KindName:
			sfn := buf[pos+consumed-32 : pos+consumed]
			entry := decodeDirEntryFields(sfn, name, loc)
			switch {
			case name.IsSelf():
				d.selfEntryPos = pos
				e := entry
				d.selfEntry = &e
			case name.IsParent():
				d.parentEntryPos = pos
				e := entry
				d.parentEntry = &e
			default:
				if err := flushRun(); err != nil {
					return nil, err
				}
				d.entries[uint32(pos)] = entry
				d.shortIndex[upperString(entry.Name.Short, cp)] = uint32(pos)
				d.fullIndex[entry.Name.Key(cp)] = uint32(pos)
			}
			pos += consumed
			continue
		}
		if ended {
			break
		}
	}
	if err := flushRun(); err != nil {
		return nil, err
	}
	if !ended {
		d.endOfEntries = uint32(len(buf))
	}
	return d, nil
}

// ListNames returns the display name (long name if present, else short) of
// every live entry, excluding "." and "..".
func (d *Directory) ListNames() []string {
	names := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		names = append(names, e.Name.Display())
	}
	return names
}

// GetEntry returns the entry at position, if any.
func (d *Directory) GetEntry(position uint32) (DirEntry, bool) {
	e, ok := d.entries[position]
	return e, ok
}

// Find returns the position of name, matched case-insensitively against the
// full-name index.
func (d *Directory) Find(name Name) (uint32, bool) {
	pos, ok := d.fullIndex[name.Key(d.cp)]
	return pos, ok
}

// FindShort returns the position of the entry whose short name, upper-cased
// through d's code page, equals shortKey. Unlike Find, this also matches
// entries that carry a long name, since those are indexed under their long
// name in fullIndex but always keep a short-name alias in shortIndex.
func (d *Directory) FindShort(shortKey string) (uint32, bool) {
	pos, ok := d.shortIndex[upperString(shortKey, d.cp)]
	return pos, ok
}

func (d *Directory) writeAt(position uint32, data []byte) error {
	if _, err := d.stream.Seek(int64(position), io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Write(data)
	return err
}

// AddEntry allocates space for entry (reusing a free run when one fits,
// else appending at the watermark), writes it, and indexes it.
func (d *Directory) AddEntry(entry DirEntry) (uint32, error) {
	shortKey := upperString(entry.Name.Short, d.cp)
	fullKey := entry.Name.Key(d.cp)
	if _, exists := d.shortIndex[shortKey]; exists {
		return 0, fmt.Errorf("%w: short name %q", ErrAlreadyExists, entry.Name.Short)
	}
	if _, exists := d.fullIndex[fullKey]; exists {
		return 0, fmt.Errorf("%w: name %q", ErrAlreadyExists, entry.Name.Display())
	}

	slots := entry.SlotCount()
	var position uint32
	if slots <= MaxBucket {
		pos, ok, err := d.free.allocate(slots)
		if err != nil {
			return 0, err
		}
		if ok {
			position = pos
		} else {
			position = d.endOfEntries
			d.endOfEntries += uint32(slots) * 32
		}
	} else {
		position = d.endOfEntries
		d.endOfEntries += uint32(slots) * 32
	}

	data, err := entry.Encode(d.cp, d.loc)
	if err != nil {
		return 0, err
	}
	if err := d.writeAt(position, data); err != nil {
		return 0, err
	}

	d.entries[position] = entry
	d.shortIndex[shortKey] = position
	d.fullIndex[fullKey] = position

	d.touchSelf(false)
	return position, nil
}

// DeleteEntry tombstones the slots at position, optionally freeing the
// entry's cluster chain, and removes it from every index. The cluster
// allocator is flushed on every exit path, including on error, per the
// concurrency model's structural-change guarantee.
func (d *Directory) DeleteEntry(position uint32, releaseContents bool) (err error) {
	entry, ok := d.entries[position]
	if !ok {
		return fmt.Errorf("%w: no entry at position %d", ErrNotFound, position)
	}
	slots := entry.SlotCount()

	if d.alloc != nil {
		defer func() {
			if ferr := d.alloc.Flush(); err == nil {
				err = ferr
			}
		}()
	}

	// Every physical slot needs its own 0xE5 marker at its own offset 0, not
	// just the first: a multi-slot LFN entry's later slots carry attribute
	// 0x0F, and leaving them zeroed makes LoadDirectory misread the second
	// slot's zero byte 0 as KindNull (end of directory stream), truncating
	// the scan and losing every entry stored after this one.
	tomb := make([]byte, slots*32)
	for i := 0; i < slots; i++ {
		tomb[i*32] = 0xE5
	}
	if err = d.writeAt(position, tomb); err != nil {
		return err
	}
	if releaseContents && d.alloc != nil {
		if err = d.alloc.FreeChain(ClusterID(entry.FirstCluster)); err != nil {
			return err
		}
	}

	delete(d.entries, position)
	delete(d.shortIndex, upperString(entry.Name.Short, d.cp))
	delete(d.fullIndex, entry.Name.Key(d.cp))
	if err = d.free.addFreeRange(position, slots); err != nil {
		return err
	}

	d.touchSelf(true)
	return nil
}

// UpdateEntry re-encodes and rewrites entry in place at position. The slot
// count must not change; renames go through delete+add instead.
func (d *Directory) UpdateEntry(position uint32, entry DirEntry) error {
	if err := d.updateEntryRaw(position, entry); err != nil {
		return err
	}
	d.touchSelf(true)
	return nil
}

// updateEntryRaw does the actual re-encode-and-rewrite without triggering
// self/parent mirroring, so touchSelf can use it without cascading updates
// past its immediate parent.
func (d *Directory) updateEntryRaw(position uint32, entry DirEntry) error {
	old, ok := d.entries[position]
	if !ok {
		return fmt.Errorf("%w: no entry at position %d", ErrNotFound, position)
	}
	if old.SlotCount() != entry.SlotCount() {
		return fmt.Errorf("%w: update_entry cannot change slot count", ErrInvalidName)
	}
	data, err := entry.Encode(d.cp, d.loc)
	if err != nil {
		return err
	}
	if err := d.writeAt(position, data); err != nil {
		return err
	}
	d.entries[position] = entry
	return nil
}

// touchSelf updates this directory's own entry in its parent, and mirrors
// the write timestamp into the in-cluster ".." record, per §4.4's self/parent
// mirroring rule. The root directory has no parent and is a no-op.
func (d *Directory) touchSelf(write bool) {
	if d.isRoot || d.parent == nil {
		return
	}
	now := time.Now().In(d.loc)
	selfEntry, ok := d.parent.entries[d.parentEntryID]
	if !ok {
		return
	}
	selfEntry.LastAccessDate = now
	if write {
		selfEntry.LastWriteTime = now
	}
	_ = d.parent.updateEntryRaw(d.parentEntryID, selfEntry)
	if write && d.parentEntryPos >= 0 && d.parentEntry != nil {
		mirrored := *d.parentEntry
		mirrored.LastWriteTime = now
		if err := d.updateEntryRaw(uint32(d.parentEntryPos), mirrored); err == nil {
			d.parentEntry = &mirrored
		}
	}
}

// CreateChildDirectory allocates a cluster, writes a Directory-attribute
// entry for it in d, and seeds the child's "." and ".." records. The cluster
// allocator is flushed on every exit path, including on error.
func (d *Directory) CreateChildDirectory(name Name) (child *Directory, position uint32, err error) {
	defer func() {
		if ferr := d.alloc.Flush(); err == nil {
			err = ferr
		}
	}()

	cluster, ok := d.alloc.TryGetFreeCluster()
	if !ok {
		return nil, 0, fmt.Errorf("%w: no free cluster for directory", ErrNoSpace)
	}
	if err = d.alloc.SetEndOfChain(cluster); err != nil {
		return nil, 0, err
	}

	now := time.Now().In(d.loc)
	entry := DirEntry{
		Name:           name,
		Attributes:     AttrDir,
		FirstCluster:   uint32(cluster),
		CreationTime:   now,
		LastAccessDate: now,
		LastWriteTime:  now,
	}
	position, err = d.AddEntry(entry)
	if err != nil {
		return nil, 0, err
	}

	stream, err := d.alloc.ClusterStream(cluster, 0, AccessReadWrite)
	if err != nil {
		return nil, 0, err
	}

	selfEntry := DirEntry{Name: SelfName(), Attributes: AttrDir, FirstCluster: uint32(cluster), CreationTime: now, LastAccessDate: now, LastWriteTime: now}
	parentCluster := d.ownFirstCluster()
	parentEntry := DirEntry{Name: ParentName(), Attributes: AttrDir, FirstCluster: parentCluster, CreationTime: now, LastAccessDate: now, LastWriteTime: now}

	selfBytes, err := selfEntry.Encode(d.cp, d.loc)
	if err != nil {
		return nil, 0, err
	}
	parentBytes, err := parentEntry.Encode(d.cp, d.loc)
	if err != nil {
		return nil, 0, err
	}
	if _, err := stream.Write(selfBytes); err != nil {
		return nil, 0, err
	}
	if _, err := stream.Write(parentBytes); err != nil {
		return nil, 0, err
	}

	child, err = LoadDirectory(stream, d.cp, d.loc, d.alloc)
	if err != nil {
		return nil, 0, err
	}
	child.parent = d
	child.parentEntryID = position

	return child, position, nil
}

// ownFirstCluster returns the cluster this directory itself lives in, as
// recorded by its own "." entry, or 0 for the root.
func (d *Directory) ownFirstCluster() uint32 {
	if d.selfEntry != nil {
		return d.selfEntry.FirstCluster
	}
	return 0
}

// Reparent rewrites this directory's in-cluster ".." record to point at
// newParent and updates the live parent/parentEntryID links used by
// touchSelf, after the directory's own entry has been moved into newParent
// by a rename. A no-op for the root directory, which has no "..".
func (d *Directory) Reparent(newParent *Directory, newParentEntryPos uint32) error {
	if d.parentEntryPos < 0 || d.parentEntry == nil {
		return nil
	}
	mirrored := *d.parentEntry
	mirrored.FirstCluster = newParent.ownFirstCluster()
	if err := d.updateEntryRaw(uint32(d.parentEntryPos), mirrored); err != nil {
		return err
	}
	d.parentEntry = &mirrored
	d.parent = newParent
	d.parentEntryID = newParentEntryPos
	return nil
}

// OpenFile resolves name against the mode table in §4.4. Truncate and
// Append are not implemented at this layer; the volume facade emulates them
// via open-then-seek or open-then-set-length.
func (d *Directory) OpenFile(name Name, mode OpenMode) (DirEntry, uint32, error) {
	position, exists := d.Find(name)

	switch mode {
	case ModeOpen:
		if !exists {
			return DirEntry{}, 0, fmt.Errorf("%w: %q", ErrNotFound, name.Display())
		}
		return d.entries[position], position, nil
	case ModeOpenOrCreate:
		if exists {
			return d.entries[position], position, nil
		}
		return d.createFile(name)
	case ModeCreateNew:
		if exists {
			return DirEntry{}, 0, fmt.Errorf("%w: %q", ErrAlreadyExists, name.Display())
		}
		return d.createFile(name)
	case ModeCreate:
		if exists {
			entry := d.entries[position]
			oldCluster := entry.FirstCluster
			entry.Size = 0
			entry.FirstCluster = 0
			if err := d.UpdateEntry(position, entry); err != nil {
				return DirEntry{}, 0, err
			}
			if oldCluster != 0 && d.alloc != nil {
				if err := d.alloc.FreeChain(ClusterID(oldCluster)); err != nil {
					return DirEntry{}, 0, err
				}
			}
			return entry, position, nil
		}
		return d.createFile(name)
	default:
		return DirEntry{}, 0, fmt.Errorf("%w: open mode", ErrNotImplemented)
	}
}

func (d *Directory) createFile(name Name) (DirEntry, uint32, error) {
	now := time.Now().In(d.loc)
	entry := DirEntry{
		Name:           name,
		Attributes:     AttrArchive,
		FirstCluster:   0,
		Size:           0,
		CreationTime:   now,
		LastAccessDate: now,
		LastWriteTime:  now,
	}
	position, err := d.AddEntry(entry)
	if err != nil {
		return DirEntry{}, 0, err
	}
	return entry, position, nil
}
