package fat

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Kind classifies the outcome of decoding a run of directory records into a
// Name.
type Kind int

const (
	// KindNull means the record marks the end of the directory stream.
	KindNull Kind = iota
	// KindDeleted means the record (or the first slot examined) is free:
	// either an explicit tombstone or an LFN chain that failed validation.
	KindDeleted
	// KindName means a usable name was decoded.
	KindName
)

// MaxLFNChars is the longest long name this package will encode or decode.
const MaxLFNChars = 255

// reserved8dot3 lists characters that may not appear in the base or
// extension of a short name.
const reserved8dot3 = "\"*+,./:;<=>?[\\]|"

// reservedLFN lists characters that may not appear in a long name, besides
// control characters below 0x20.
const reservedLFN = "\"*/:<>?\\|"

// Name is the immutable value carrying a FAT directory entry's short (8.3)
// name and, optionally, its long name. Two sentinel forms exist: SelfName
// and ParentName, corresponding to "." and "..".
type Name struct {
	// Short is the canonical short name, e.g. "FOO.TXT" or "FOO". Its case
	// reflects the on-disk case-flag bits directly: it is lowercase wherever
	// the case flags say so, and only forced fully uppercase when Long is
	// also set (per the case-flag-fidelity rule, case flags are meaningless
	// once an LFN carries the true case).
	Short string
	// Long is the long name, or "" if this entry has no LFN chain.
	Long string
}

// SelfName returns the "." sentinel.
func SelfName() Name { return Name{Short: "."} }

// ParentName returns the ".." sentinel.
func ParentName() Name { return Name{Short: ".."} }

// IsSelf reports whether n is the "." sentinel.
func (n Name) IsSelf() bool { return n.Long == "" && n.Short == "." }

// IsParent reports whether n is the ".." sentinel.
func (n Name) IsParent() bool { return n.Long == "" && n.Short == ".." }

// Display returns the name a user should see: the long name when present,
// else the short name as reconstructed from the case flags.
func (n Name) Display() string {
	if n.Long != "" {
		return n.Long
	}
	return n.Short
}

// Key returns the case-insensitive key used for full-name indexing: the
// upper-cased Display() form.
func (n Name) Key(cp *CodePage) string {
	return upperString(n.Display(), cp)
}

// ShortKey returns the case-insensitive key used for short-name indexing.
func (n Name) ShortKey(cp *CodePage) string {
	return upperString(n.Short, cp)
}

func (n Name) lfnUnits() []uint16 {
	if n.Long == "" {
		return nil
	}
	return utf16.Encode([]rune(n.Long))
}

// LFNSlotCount returns ceil(len(long_name)/13), or 0 when there is no long
// name.
func (n Name) LFNSlotCount() int {
	if n.Long == "" {
		return 0
	}
	units := len(n.lfnUnits())
	return (units + 12) / 13
}

// SlotCount returns the total number of 32-byte directory records this name
// occupies, LFN slots plus the one SFN slot.
func (n Name) SlotCount() int { return 1 + n.LFNSlotCount() }

// EncodedSize returns SlotCount()*32.
func (n Name) EncodedSize() int { return n.SlotCount() * 32 }

func (n Name) splitShort() (base, ext string) {
	if n.Short == "." || n.Short == ".." {
		return n.Short, ""
	}
	if idx := strings.LastIndexByte(n.Short, '.'); idx >= 0 {
		return n.Short[:idx], n.Short[idx+1:]
	}
	return n.Short, ""
}

// Encode renders the name into (SlotCount())*32 bytes: zero or more LFN
// slots followed by the SFN slot. Only the name-related bytes of the SFN
// slot are written (offsets 0-10 and 12); attribute, timestamps, cluster and
// size belong to DirEntry and are overlaid separately.
func (n Name) Encode(cp *CodePage) ([]byte, error) {
	slots := n.SlotCount()
	buf := make([]byte, slots*32)
	sfnOff := (slots - 1) * 32

	base, ext := n.splitShort()
	name11, caseFlags, err := encodeSFNField(base, ext, cp)
	if err != nil {
		return nil, err
	}
	copy(buf[sfnOff:sfnOff+11], name11[:])
	if n.Long == "" {
		buf[sfnOff+12] = caseFlags
	}

	if n.Long != "" {
		checksum := sfnChecksum(name11)
		units := n.lfnUnits()
		total := slots - 1
		for idx := total; idx >= 1; idx-- {
			diskSlot := total - idx
			writeLFNSlot(buf[diskSlot*32:diskSlot*32+32], idx, total, units, checksum)
		}
	}
	return buf, nil
}

// DecodeName decodes a Name starting at data[0], returning the number of
// bytes consumed and a Kind describing what was found. On KindDeleted, only
// a single 32-byte record was consumed: callers should advance by exactly
// that much and retry, which naturally frees orphaned LFN slots one at a
// time. DecodeName never returns an error for recoverable on-disk anomalies
// (bad checksum, broken chain); err is reserved for a buffer shorter than
// one directory record.
func DecodeName(data []byte, cp *CodePage) (Name, int, Kind, error) {
	if len(data) < 32 {
		return Name{}, 0, KindDeleted, fmt.Errorf("fat: short directory record: %d bytes", len(data))
	}

	type lfnSlot struct {
		units    [13]uint16
		checksum byte
	}

	var slots []lfnSlot
	off := 0
	expected := 0
	chainBroken := false
	for off+32 <= len(data) && data[off+11] == 0x0F {
		seq := data[off]
		idx := int(seq & 0x3F)
		isLast := seq&0x40 != 0
		if idx == 0 || idx > 20 {
			chainBroken = true
			break
		}
		if len(slots) == 0 {
			if !isLast {
				chainBroken = true
				break
			}
		} else if isLast || idx != expected-1 {
			chainBroken = true
			break
		}
		expected = idx
		slots = append(slots, lfnSlot{units: extractLFNUnits(data[off : off+32]), checksum: data[off+13]})
		off += 32
	}
	if chainBroken && len(slots) == 0 {
		// The very first slot examined was itself an unusable LFN fragment
		// (bad sequence byte, or missing LAST_LONG_ENTRY on what should have
		// started a new chain). Treat just that one slot as an orphaned,
		// recoverable fragment instead of falling through and misreading it
		// as a short-name record.
		return Name{}, 32, KindDeleted, nil
	}
	if len(slots) > 0 && expected != 1 {
		chainBroken = true
	}
	if len(slots) > 0 && chainBroken {
		return Name{}, 32, KindDeleted, nil
	}
	if off+32 > len(data) {
		if len(slots) > 0 {
			return Name{}, 32, KindDeleted, nil
		}
		return Name{}, 0, KindDeleted, fmt.Errorf("fat: short directory record")
	}

	sfn := data[off : off+32]
	if sfn[11] == 0x0F {
		if len(slots) > 0 {
			return Name{}, 32, KindDeleted, nil
		}
		return Name{}, 0, KindDeleted, fmt.Errorf("fat: unexpected LFN attribute on SFN record")
	}

	switch sfn[0] {
	case 0x00:
		if len(slots) > 0 {
			return Name{}, 32, KindDeleted, nil
		}
		return Name{}, 32, KindNull, nil
	case 0xE5:
		return Name{}, 32, KindDeleted, nil
	}

	var name11 [11]byte
	copy(name11[:], sfn[0:11])
	checksum := sfnChecksum(name11)
	for _, s := range slots {
		if s.checksum != checksum {
			return Name{}, 32, KindDeleted, nil
		}
	}

	base, ext := decodeSFNField(sfn, cp)
	short := base
	if ext != "" {
		short += "." + ext
	}

	name := Name{Short: short}
	if len(slots) > 0 {
		total := len(slots) * 13
		units := make([]uint16, 0, total)
		for i := len(slots) - 1; i >= 0; i-- {
			units = append(units, slots[i].units[:]...)
		}
		end := len(units)
		for i, u := range units {
			if u == 0x0000 {
				end = i
				break
			}
		}
		name.Long = string(utf16.Decode(units[:end]))
	}
	return name, off + 32, KindName, nil
}

func extractLFNUnits(slot []byte) [13]uint16 {
	var u [13]uint16
	for i := 0; i < 5; i++ {
		u[i] = binary.LittleEndian.Uint16(slot[1+i*2:])
	}
	for i := 0; i < 6; i++ {
		u[5+i] = binary.LittleEndian.Uint16(slot[14+i*2:])
	}
	for i := 0; i < 2; i++ {
		u[11+i] = binary.LittleEndian.Uint16(slot[28+i*2:])
	}
	return u
}

func writeLFNSlot(dst []byte, idx, total int, units []uint16, checksum byte) {
	seq := byte(idx)
	if idx == total {
		seq |= 0x40
	}
	dst[0] = seq
	dst[11] = 0x0F
	dst[12] = 0
	dst[13] = checksum
	binary.LittleEndian.PutUint16(dst[26:28], 0)

	start := (idx - 1) * 13
	var chunk [13]uint16
	for i := 0; i < 13; i++ {
		pos := start + i
		switch {
		case pos < len(units):
			chunk[i] = units[pos]
		case pos == len(units):
			chunk[i] = 0x0000
		default:
			chunk[i] = 0xFFFF
		}
	}
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint16(dst[1+i*2:], chunk[i])
	}
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint16(dst[14+i*2:], chunk[5+i])
	}
	for i := 0; i < 2; i++ {
		binary.LittleEndian.PutUint16(dst[28+i*2:], chunk[11+i])
	}
}

// sfnChecksum implements the byte-rotate-right-then-add checksum over the 11
// raw SFN name bytes.
func sfnChecksum(name11 [11]byte) byte {
	var sum byte
	for _, b := range name11 {
		sum = ((sum & 1) << 7) | (sum >> 1)
		sum += b
	}
	return sum
}

func encodeSFNField(base, ext string, cp *CodePage) ([11]byte, byte, error) {
	var name11 [11]byte
	for i := range name11 {
		name11[i] = 0x20
	}

	baseBytes, err := encodeUpper(base, cp)
	if err != nil {
		return name11, 0, err
	}
	extBytes, err := encodeUpper(ext, cp)
	if err != nil {
		return name11, 0, err
	}
	if len(baseBytes) > 8 || len(extBytes) > 3 {
		return name11, 0, fmt.Errorf("%w: short name component too long", ErrInvalidName)
	}
	copy(name11[0:8], baseBytes)
	copy(name11[8:11], extBytes)
	if name11[0] == 0xE5 {
		name11[0] = 0x05
	}

	var flags byte
	if isAllLower(base) {
		flags |= 0x08
	}
	if isAllLower(ext) {
		flags |= 0x10
	}
	return name11, flags, nil
}

func decodeSFNField(sfn []byte, cp *CodePage) (base, ext string) {
	nameBytes := append([]byte(nil), sfn[0:8]...)
	if nameBytes[0] == 0x05 {
		nameBytes[0] = 0xE5
	}
	extBytes := append([]byte(nil), sfn[8:11]...)

	baseTrim := trimTrailingSpace(nameBytes)
	extTrim := trimTrailingSpace(extBytes)

	base = decodeBytes(baseTrim, cp)
	ext = decodeBytes(extTrim, cp)

	caseFlags := sfn[12]
	if caseFlags&0x08 != 0 {
		base = strings.ToLower(base)
	}
	if caseFlags&0x10 != 0 {
		ext = strings.ToLower(ext)
	}
	return base, ext
}

func trimTrailingSpace(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0x20 {
		end--
	}
	return b[:end]
}

func decodeBytes(b []byte, cp *CodePage) string {
	runes := make([]rune, len(b))
	for i, v := range b {
		runes[i] = cp.Decode(v)
	}
	return string(runes)
}

func encodeUpper(s string, cp *CodePage) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp.Encode(toUpperRune(r))
		if !ok {
			return nil, fmt.Errorf("%w: character %q not representable in code page", ErrInvalidName, r)
		}
		out = append(out, b)
	}
	return out, nil
}

func isAllLower(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			hasCased = true
		}
	}
	return hasCased
}

func isUniformCase(s string) bool {
	hasUpper, hasLower := false, false
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	return !(hasUpper && hasLower)
}

func upperString(s string, cp *CodePage) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = toUpperRune(r)
	}
	return string(runes)
}

func hasDisallowed8dot3(s string) bool {
	return strings.ContainsAny(s, reserved8dot3)
}

func hasSpace(s string) bool {
	return strings.ContainsRune(s, ' ')
}

func allEncodable(s string, cp *CodePage) bool {
	for _, r := range s {
		if _, ok := cp.Encode(toUpperRune(r)); !ok {
			return false
		}
	}
	return true
}

// ExistsFunc reports whether a candidate short name (upper-cased "BASE.EXT"
// or "BASE") is already present in the target directory.
type ExistsFunc func(shortName string) bool

// GenerateName derives a Name from a user-supplied string, producing a
// unique, on-disk-representable short name and, when needed, a long name.
func GenerateName(input string, cp *CodePage, exists ExistsFunc) (Name, error) {
	if input == "" {
		return Name{}, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(utf16.Encode([]rune(input))) > MaxLFNChars {
		return Name{}, fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, MaxLFNChars)
	}
	for _, r := range input {
		if r < 0x20 {
			return Name{}, fmt.Errorf("%w: control character in name", ErrInvalidName)
		}
		if strings.ContainsRune(reservedLFN, r) {
			return Name{}, fmt.Errorf("%w: reserved character %q", ErrInvalidName, r)
		}
	}

	remaining := strings.TrimRight(input, ".")
	if remaining == "" {
		return Name{}, fmt.Errorf("%w: name is all dots", ErrInvalidName)
	}

	if base, ext, ok := notLossyShortName(remaining, cp); ok {
		short := base
		if ext != "" {
			short += "." + ext
		}
		return Name{Short: short}, nil
	}

	return generateLossyName(input, remaining, cp, exists)
}

// notLossyShortName reports whether remaining is already a valid 8.3 name
// modulo case, and if so returns its base/extension split.
func notLossyShortName(remaining string, cp *CodePage) (base, ext string, ok bool) {
	dots := strings.Count(remaining, ".")
	if dots > 1 {
		return "", "", false
	}
	if dots == 1 {
		idx := strings.IndexByte(remaining, '.')
		base, ext = remaining[:idx], remaining[idx+1:]
	} else {
		base = remaining
	}
	if base == "" {
		return "", "", false
	}
	if hasDisallowed8dot3(base) || hasDisallowed8dot3(ext) {
		return "", "", false
	}
	if !isUniformCase(base) || !isUniformCase(ext) {
		return "", "", false
	}
	if hasSpace(base) || hasSpace(ext) {
		return "", "", false
	}
	if len(base) > 8 || len(ext) > 3 {
		return "", "", false
	}
	if !allEncodable(base, cp) || !allEncodable(ext, cp) {
		return "", "", false
	}
	return base, ext, true
}

func generateLossyName(original, remaining string, cp *CodePage, exists ExistsFunc) (Name, error) {
	trimmed := strings.TrimLeft(remaining, " .")
	if trimmed == "" {
		trimmed = remaining
	}

	var baseText, extText string
	if idx := strings.LastIndexByte(trimmed, '.'); idx >= 0 {
		baseText, extText = trimmed[:idx], trimmed[idx+1:]
	} else {
		baseText = trimmed
	}

	baseEncodable, unencodable := buildLossyComponent(baseText, cp, true)
	extEncodable, _ := buildLossyComponent(extText, cp, false)

	var extBytes []byte
	if len(extEncodable) > 3 {
		extBytes = extEncodable[:3]
	} else {
		extBytes = extEncodable
	}

	useHash := unencodable
	var baseBytes []byte
	if useHash {
		baseBytes = hashFallbackBase(baseEncodable, original)
	} else {
		baseBytes = baseEncodable
		if len(baseBytes) > 8 {
			baseBytes = baseBytes[:8]
		}
	}

	n := 1
	for {
		suffix := fmt.Sprintf("~%d", n)
		maxBase := 8 - len(suffix)
		trimmedBase := baseBytes
		if len(trimmedBase) > maxBase {
			trimmedBase = trimmedBase[:maxBase]
		}
		candidateBase := string(trimmedBase) + suffix
		candidate := candidateBase
		if len(extBytes) > 0 {
			candidate += "." + string(extBytes)
		}
		if exists == nil || !exists(candidate) {
			return Name{Short: candidate, Long: original}, nil
		}
		n++
		if n > 4 && !useHash {
			useHash = true
			baseBytes = hashFallbackBase(baseEncodable, original)
			n = 1
			continue
		}
		if n > 999999 {
			return Name{}, fmt.Errorf("%w: exhausted short-name collision space", ErrNoSpace)
		}
	}
}

// buildLossyComponent walks s, dropping spaces/dots, mapping reserved 8.3
// characters to '_', and upper-casing via cp. trackUnencodable reports
// (via the second return value) whether any character was unrepresentable
// in cp; such characters are simply skipped from the returned bytes.
func buildLossyComponent(s string, cp *CodePage, trackUnencodable bool) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	unencodable := false
	for _, r := range s {
		if r == ' ' || r == '.' {
			continue
		}
		if strings.ContainsRune(reserved8dot3, r) {
			out = append(out, '_')
			continue
		}
		b, ok := cp.Encode(toUpperRune(r))
		if !ok {
			unencodable = true
			continue
		}
		out = append(out, b)
	}
	return out, trackUnencodable && unencodable
}

func hashFallbackBase(encodable []byte, originalLongName string) []byte {
	keep := encodable
	if len(keep) > 2 {
		keep = keep[:2]
	}
	hash := lfnHash(originalLongName)
	out := make([]byte, 0, len(keep)+4)
	out = append(out, keep...)
	out = append(out, []byte(hash)...)
	return out
}

// lfnHash computes the deterministic 16-bit digest used for the short-name
// hash fallback, rendered as 4 uppercase hex digits.
func lfnHash(name string) string {
	var h uint32
	for _, c := range name {
		h = (h*0x25 + uint32(c)) & 0xFFFF
	}

	t := int64(int32(uint32(h) * 314159269))
	if t < 0 {
		t = -t
	}
	product := t * 1152921497
	shifted := int64(uint64(product) >> 60)
	t = t - shifted*1000000007
	h = uint32(t) & 0xFFFF

	var out uint32
	for i := 0; i < 4; i++ {
		out = (out << 4) | (h & 0xF)
		h >>= 4
	}
	return fmt.Sprintf("%04X", out)
}
