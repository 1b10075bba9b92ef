package fat

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Attr is the FAT directory-entry attribute bitmask.
type Attr byte

const (
	AttrReadOnly Attr = 1 << 0
	AttrHidden   Attr = 1 << 1
	AttrSystem   Attr = 1 << 2
	AttrVolumeID Attr = 1 << 3
	AttrDir      Attr = 1 << 4
	AttrArchive  Attr = 1 << 5

	// AttrLongName is the reserved combination that marks a slot as an LFN
	// fragment rather than a real entry. It is a variant value, not a set of
	// independent flags: detection must compare for equality.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// IsDir reports whether a matches the directory attribute.
func (a Attr) IsDir() bool { return a&AttrDir != 0 }

// epoch is the FAT sentinel date/time: 1980-01-01T00:00:00.
func epoch(loc *time.Location) time.Time {
	return time.Date(1980, time.January, 1, 0, 0, 0, 0, loc)
}

// DirEntry is a decoded 32-byte (plus LFN slots) directory record.
type DirEntry struct {
	Name             Name
	Attributes       Attr
	FirstCluster     uint32
	Size             uint32
	CreationTime     time.Time
	CreationTenths   uint8
	LastAccessDate   time.Time
	LastWriteTime    time.Time
}

// SlotCount returns 1 + Name.LFNSlotCount().
func (e *DirEntry) SlotCount() int { return e.Name.SlotCount() }

// Encode renders e into e.SlotCount()*32 bytes, overlaying the attribute,
// timestamp, cluster and size fields onto the SFN slot produced by
// e.Name.Encode.
func (e *DirEntry) Encode(cp *CodePage, loc *time.Location) ([]byte, error) {
	buf, err := e.Name.Encode(cp)
	if err != nil {
		return nil, err
	}
	sfnOff := len(buf) - 32
	sfn := buf[sfnOff:]

	sfn[11] = byte(e.Attributes)
	sfn[13] = byte(e.CreationTenths)

	putPackedTime(sfn[14:16], e.CreationTime, loc)
	putPackedDate(sfn[16:18], e.CreationTime, loc)
	putPackedDate(sfn[18:20], e.LastAccessDate, loc)
	binary.LittleEndian.PutUint16(sfn[20:22], uint16(e.FirstCluster>>16))
	putPackedTime(sfn[22:24], e.LastWriteTime, loc)
	putPackedDate(sfn[24:26], e.LastWriteTime, loc)
	binary.LittleEndian.PutUint16(sfn[26:28], uint16(e.FirstCluster))
	binary.LittleEndian.PutUint32(sfn[28:32], e.Size)

	return buf, nil
}

// DecodeDirEntry decodes a DirEntry starting at data[0]. It returns the
// number of bytes consumed and the Kind DecodeName reported; callers should
// only inspect the returned entry when kind == KindName.
func DecodeDirEntry(data []byte, cp *CodePage, loc *time.Location) (DirEntry, int, Kind, error) {
	name, consumed, kind, err := DecodeName(data, cp)
	if err != nil || kind != KindName {
		return DirEntry{}, consumed, kind, err
	}
	if consumed > len(data) || consumed < 32 {
		return DirEntry{}, 0, KindDeleted, fmt.Errorf("%w: inconsistent slot count", ErrCorrupt)
	}
	return decodeDirEntryFields(data[consumed-32:consumed], name, loc), consumed, KindName, nil
}

// decodeDirEntryFields fills in the non-name fields of a DirEntry from its
// 32-byte SFN slot, given a Name already decoded by the caller.
func decodeDirEntryFields(sfn []byte, name Name, loc *time.Location) DirEntry {
	e := DirEntry{
		Name:           name,
		Attributes:     Attr(sfn[11]),
		CreationTenths: sfn[13],
	}
	e.CreationTime = getPackedDateTime(sfn[16:18], sfn[14:16], loc)
	e.LastAccessDate = getPackedDate(sfn[18:20], loc)
	e.LastWriteTime = getPackedDateTime(sfn[24:26], sfn[22:24], loc)
	hi := uint32(binary.LittleEndian.Uint16(sfn[20:22]))
	lo := uint32(binary.LittleEndian.Uint16(sfn[26:28]))
	e.FirstCluster = hi<<16 | lo
	e.Size = binary.LittleEndian.Uint32(sfn[28:32])
	return e
}

func putPackedDate(dst []byte, t time.Time, loc *time.Location) {
	if t.IsZero() || t.Year() < 1980 {
		binary.LittleEndian.PutUint16(dst, 0)
		return
	}
	lt := t.In(loc)
	v := uint16(lt.Year()-1980)<<9 | uint16(lt.Month())<<5 | uint16(lt.Day())
	binary.LittleEndian.PutUint16(dst, v)
}

func putPackedTime(dst []byte, t time.Time, loc *time.Location) {
	if t.IsZero() || t.Year() < 1980 {
		binary.LittleEndian.PutUint16(dst, 0)
		return
	}
	lt := t.In(loc)
	v := uint16(lt.Hour())<<11 | uint16(lt.Minute())<<5 | uint16(lt.Second()/2)
	binary.LittleEndian.PutUint16(dst, v)
}

func getPackedDate(raw []byte, loc *time.Location) time.Time {
	v := binary.LittleEndian.Uint16(raw)
	if v == 0x0000 || v == 0xFFFF {
		return epoch(loc)
	}
	year := int(v>>9) + 1980
	month := time.Month((v >> 5) & 0x0F)
	day := int(v & 0x1F)
	if month < 1 || month > 12 || day < 1 {
		return epoch(loc)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func getPackedDateTime(dateRaw, timeRaw []byte, loc *time.Location) time.Time {
	d := getPackedDate(dateRaw, loc)
	tv := binary.LittleEndian.Uint16(timeRaw)
	hour := int(tv >> 11)
	minute := int((tv >> 5) & 0x3F)
	second := int(tv&0x1F) * 2
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, second, 0, loc)
}
