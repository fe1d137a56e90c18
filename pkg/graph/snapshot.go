package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/pkg/types"
)

// Snapshot format: a little-endian stream of the word-level cell encodings
// plus the backing stores they reference, followed by a BLAKE3 checksum.
// Loading a snapshot into a fresh process observes exactly the persisted
// byte-level invariants: null links as 0, tagged-inline backlinks, and
// degenerate list cells as 0. Restored stores are read-only; the first
// mutation copies them and rebinds the owning cell.
const snapshotMagic = "LNKG0001"

// WriteSnapshot flushes the group to w.
func (g *Group) WriteSnapshot(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	writeString(&buf, g.id)
	writeU32(&buf, uint32(len(g.tables)))

	for _, t := range g.tables {
		writeString(&buf, t.name)
		writeU64(&buf, uint64(t.sz))

		writeU32(&buf, uint32(len(t.cols)))
		for _, col := range t.cols {
			kind := uint8(0)
			if col.isList() {
				kind = 1
			}
			buf.WriteByte(kind)
			weakFlag := uint8(0)
			if col.linkKind() == types.Weak {
				weakFlag = 1
			}
			buf.WriteByte(weakFlag)
			writeU32(&buf, uint32(col.targetTable().ID()))
			writeString(&buf, col.colName())
			writeWords(&buf, columnCells(col))
		}

		writeU32(&buf, uint32(len(t.backlinks)))
		for _, bl := range t.backlinks {
			writeU32(&buf, uint32(bl.origin.originTable().ID()))
			writeU32(&buf, uint32(bl.origin.originColID()))
			writeWords(&buf, bl.cells)
		}
	}

	refs := g.alloc.Refs()
	writeU32(&buf, uint32(len(refs)))
	for _, ref := range refs {
		words, err := g.alloc.Words(ref)
		if err != nil {
			return fmt.Errorf("flushing store %#x: %w", uint64(ref), err)
		}
		writeU64(&buf, uint64(ref))
		writeWords(&buf, words)
	}

	sum := blake3.Sum256(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if _, err := w.Write(sum[:]); err != nil {
		return fmt.Errorf("writing snapshot checksum: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot into a fresh group with no prior in-memory
// state. The stream checksum is verified before anything is built.
func LoadSnapshot(r io.Reader) (*Group, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(raw) < len(snapshotMagic)+32 {
		return nil, fmt.Errorf("snapshot truncated: %w", types.ErrInvariantViolation)
	}
	body, sum := raw[:len(raw)-32], raw[len(raw)-32:]
	if want := blake3.Sum256(body); !bytes.Equal(sum, want[:]) {
		return nil, fmt.Errorf("snapshot checksum mismatch: %w", types.ErrInvariantViolation)
	}

	rd := &reader{buf: body}
	if string(rd.take(len(snapshotMagic))) != snapshotMagic {
		return nil, fmt.Errorf("bad snapshot magic: %w", types.ErrInvariantViolation)
	}

	g := &Group{alloc: alloc.New()}
	g.id = rd.readString()

	type colDesc struct {
		list   bool
		weak   bool
		target uint32
		name   string
		cells  []uint64
	}
	type blDesc struct {
		originTable, originCol uint32
		cells                  []uint64
	}

	ntables := int(rd.readU32())
	cols := make([][]colDesc, ntables)
	bls := make([][]blDesc, ntables)
	for i := 0; i < ntables; i++ {
		name := rd.readString()
		t := &Table{g: g, name: name, sz: int(rd.readU64())}
		g.tables = append(g.tables, t)

		ncols := int(rd.readU32())
		for c := 0; c < ncols; c++ {
			kind := rd.readU8()
			weakFlag := rd.readU8()
			cols[i] = append(cols[i], colDesc{
				list:   kind == 1,
				weak:   weakFlag == 1,
				target: rd.readU32(),
				name:   rd.readString(),
				cells:  rd.readWords(),
			})
		}
		nback := int(rd.readU32())
		for b := 0; b < nback; b++ {
			bls[i] = append(bls[i], blDesc{
				originTable: rd.readU32(),
				originCol:   rd.readU32(),
				cells:       rd.readWords(),
			})
		}
	}

	nstores := int(rd.readU32())
	for s := 0; s < nstores; s++ {
		ref := alloc.Ref(rd.readU64())
		if err := g.alloc.Restore(ref, rd.readWords()); err != nil {
			return nil, err
		}
	}
	if rd.err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", rd.err)
	}

	// Second pass: instantiate columns now that every table exists.
	for i, t := range g.tables {
		for _, d := range cols[i] {
			if int(d.target) >= len(g.tables) {
				return nil, fmt.Errorf("column %q targets table %d of %d: %w",
					d.name, d.target, len(g.tables), types.ErrInvariantViolation)
			}
			target := g.tables[d.target]
			kind := types.Strong
			if d.weak {
				kind = types.Weak
			}
			if d.list {
				t.cols = append(t.cols, &linkListColumn{
					tbl: t, name: d.name, idx: types.ColID(len(t.cols)),
					target: target, kind: kind, cells: d.cells,
				})
			} else {
				t.cols = append(t.cols, &linkColumn{
					tbl: t, name: d.name, idx: types.ColID(len(t.cols)),
					target: target, kind: kind, cells: d.cells,
				})
			}
		}
	}

	// Third pass: re-pair the backlink columns with their origin columns.
	for i, t := range g.tables {
		for _, d := range bls[i] {
			if int(d.originTable) >= len(g.tables) {
				return nil, fmt.Errorf("backlinks from table %d of %d: %w",
					d.originTable, len(g.tables), types.ErrInvariantViolation)
			}
			origin := g.tables[d.originTable]
			if int(d.originCol) >= len(origin.cols) {
				return nil, fmt.Errorf("backlinks from column %d of %d: %w",
					d.originCol, len(origin.cols), types.ErrInvariantViolation)
			}
			bl := &backlinkColumn{tbl: t, cells: d.cells}
			switch oc := origin.cols[d.originCol].(type) {
			case *linkColumn:
				oc.backlink = bl
				bl.origin = oc
			case *linkListColumn:
				oc.backlink = bl
				bl.origin = oc
			}
			t.backlinks = append(t.backlinks, bl)
		}
	}
	return g, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeWords(buf *bytes.Buffer, words []uint64) {
	writeU32(buf, uint32(len(words)))
	for _, w := range words {
		writeU64(buf, w)
	}
}

func columnCells(col tableColumn) []uint64 {
	switch c := col.(type) {
	case *linkColumn:
		return c.cells
	case *linkListColumn:
		return c.cells
	}
	return nil
}

// reader decodes the snapshot body, latching the first error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil || len(r.buf) < n {
		if r.err == nil {
			r.err = fmt.Errorf("snapshot truncated: %w", types.ErrInvariantViolation)
		}
		return make([]byte, n)
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) readU8() uint8 { return r.take(1)[0] }
func (r *reader) readU32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *reader) readU64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }

func (r *reader) readString() string {
	n := int(r.readU32())
	return string(r.take(n))
}

func (r *reader) readWords() []uint64 {
	n := int(r.readU32())
	words := make([]uint64, n)
	for i := range words {
		words[i] = r.readU64()
	}
	return words
}
