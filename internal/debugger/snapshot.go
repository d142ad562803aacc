// snapshot.go - Machine state snapshot save/load (`ss`/`sl` commands).
//
// Grounded on debug_snapshot.go's gzip-framed binary codec, adapted to
// this core's persisted-state shape (spec §6): bus blocks, segment
// registers, and the debugger's breakpoint addresses, instead of
// the teacher's flat (CPUType, []RegisterInfo, []byte memory) triple.

package debugger

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ie286emu/core/internal/bus"
	"github.com/ie286emu/core/internal/segment"
)

const (
	snapshotMagic   = "IE86"
	snapshotVersion = 1
)

// SegmentState is the persisted form of one segment register (spec
// §6's persisted-state list for Segment).
type SegmentState struct {
	Name                      string
	Sel                       uint16
	Base, Limit               uint32
	Acc                       uint16
	CPL, DPL                  uint8
	AddrDesc                  uint32
	AddrSize, DataSize        int
	AddrMask, DataMask        uint32
	Type                      uint8
	OffMax                    uint32
}

// Snapshot captures everything needed to resume a machine.
type Snapshot struct {
	Blocks   []BlockState
	Segments []SegmentState
	Breaks   []uint64
}

// BlockState is one mapped bus block's persisted contents.
type BlockState struct {
	Addr uint32
	Type bus.BlockType
	Data []byte
}

// Take captures the bus's mapped blocks, the given segment registers,
// and the current breakpoint addresses.
func Take(b *bus.Bus, segs map[string]*segment.Register, bp *Breakpoints) *Snapshot {
	snap := &Snapshot{Breaks: bp.List()}
	b.EnumBlocks(bus.TypeRAM|bus.TypeROM|bus.TypeVideo, func(blk *bus.Block) {
		snap.Blocks = append(snap.Blocks, BlockState{Addr: blk.Addr, Type: blk.Type, Data: blk.Bytes()})
	})
	for name, r := range segs {
		snap.Segments = append(snap.Segments, SegmentState{
			Name: name, Sel: r.Sel, Base: r.Base, Limit: r.Limit, Acc: r.Acc,
			CPL: r.CPL, DPL: r.DPL, AddrDesc: r.AddrDesc,
			AddrSize: r.AddrSize, DataSize: r.DataSize,
			AddrMask: r.AddrMask, DataMask: r.DataMask,
			Type: r.Type, OffMax: r.OffMax,
		})
	}
	return snap
}

// Restore writes a snapshot's block contents back onto b and resets
// the named segment registers and breakpoint table to match.
func Restore(snap *Snapshot, b *bus.Bus, segs map[string]*segment.Register, bp *Breakpoints) {
	for _, blkState := range snap.Blocks {
		blk := b.BlockAt(blkState.Addr)
		blk.Load(blkState.Data)
	}
	for _, s := range snap.Segments {
		r, ok := segs[s.Name]
		if !ok {
			continue
		}
		r.Sel, r.Base, r.Limit = s.Sel, s.Base, s.Limit
		r.Acc, r.CPL, r.DPL = s.Acc, s.CPL, s.DPL
		r.AddrDesc = s.AddrDesc
		r.AddrSize, r.DataSize = s.AddrSize, s.DataSize
		r.AddrMask, r.DataMask = s.AddrMask, s.DataMask
		r.Type, r.OffMax = s.Type, s.OffMax
	}
	bp.ClearAll()
	for _, a := range snap.Breaks {
		bp.Set(a)
	}
}

// SaveToFile writes snap to path, gzip-compressing the block payload.
func SaveToFile(snap *Snapshot, path string) error {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(snapshotVersion))

	binary.Write(&buf, binary.LittleEndian, uint32(len(snap.Segments)))
	for _, s := range snap.Segments {
		writeString(&buf, s.Name)
		binary.Write(&buf, binary.LittleEndian, s.Sel)
		binary.Write(&buf, binary.LittleEndian, s.Base)
		binary.Write(&buf, binary.LittleEndian, s.Limit)
		binary.Write(&buf, binary.LittleEndian, s.Acc)
		binary.Write(&buf, binary.LittleEndian, s.CPL)
		binary.Write(&buf, binary.LittleEndian, s.DPL)
		binary.Write(&buf, binary.LittleEndian, s.AddrDesc)
		binary.Write(&buf, binary.LittleEndian, uint32(s.AddrSize))
		binary.Write(&buf, binary.LittleEndian, uint32(s.DataSize))
		binary.Write(&buf, binary.LittleEndian, s.AddrMask)
		binary.Write(&buf, binary.LittleEndian, s.DataMask)
		binary.Write(&buf, binary.LittleEndian, s.Type)
		binary.Write(&buf, binary.LittleEndian, s.OffMax)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(snap.Breaks)))
	for _, a := range snap.Breaks {
		binary.Write(&buf, binary.LittleEndian, a)
	}

	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, uint32(len(snap.Blocks)))
	for _, blk := range snap.Blocks {
		binary.Write(&payload, binary.LittleEndian, blk.Addr)
		binary.Write(&payload, binary.LittleEndian, uint32(blk.Type))
		binary.Write(&payload, binary.LittleEndian, uint32(len(blk.Data)))
		payload.Write(blk.Data)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(payload.Len()))

	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("compressing blocks: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadFromFile reads and decompresses a snapshot from disk.
func LoadFromFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("invalid snapshot magic: %q", string(magic))
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	snap := &Snapshot{}

	var segCount uint32
	if err := binary.Read(r, binary.LittleEndian, &segCount); err != nil {
		return nil, fmt.Errorf("reading segment count: %w", err)
	}
	for i := uint32(0); i < segCount; i++ {
		var s SegmentState
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("reading segment name: %w", err)
		}
		s.Name = name
		binary.Read(r, binary.LittleEndian, &s.Sel)
		binary.Read(r, binary.LittleEndian, &s.Base)
		binary.Read(r, binary.LittleEndian, &s.Limit)
		binary.Read(r, binary.LittleEndian, &s.Acc)
		binary.Read(r, binary.LittleEndian, &s.CPL)
		binary.Read(r, binary.LittleEndian, &s.DPL)
		binary.Read(r, binary.LittleEndian, &s.AddrDesc)
		var addrSize, dataSize uint32
		binary.Read(r, binary.LittleEndian, &addrSize)
		binary.Read(r, binary.LittleEndian, &dataSize)
		s.AddrSize, s.DataSize = int(addrSize), int(dataSize)
		binary.Read(r, binary.LittleEndian, &s.AddrMask)
		binary.Read(r, binary.LittleEndian, &s.DataMask)
		binary.Read(r, binary.LittleEndian, &s.Type)
		binary.Read(r, binary.LittleEndian, &s.OffMax)
		snap.Segments = append(snap.Segments, s)
	}

	var breakCount uint32
	if err := binary.Read(r, binary.LittleEndian, &breakCount); err != nil {
		return nil, fmt.Errorf("reading breakpoint count: %w", err)
	}
	for i := uint32(0); i < breakCount; i++ {
		var a uint64
		binary.Read(r, binary.LittleEndian, &a)
		snap.Breaks = append(snap.Breaks, a)
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, fmt.Errorf("reading payload length: %w", err)
	}
	_ = payloadLen

	remaining := data[len(data)-r.Len():]
	gz, err := gzip.NewReader(bytes.NewReader(remaining))
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader: %w", err)
	}
	defer gz.Close()

	var blockCount uint32
	if err := binary.Read(gz, binary.LittleEndian, &blockCount); err != nil {
		return nil, fmt.Errorf("reading block count: %w", err)
	}
	for i := uint32(0); i < blockCount; i++ {
		var blk BlockState
		var typ, dataLen uint32
		binary.Read(gz, binary.LittleEndian, &blk.Addr)
		binary.Read(gz, binary.LittleEndian, &typ)
		binary.Read(gz, binary.LittleEndian, &dataLen)
		blk.Type = bus.BlockType(typ)
		blk.Data = make([]byte, dataLen)
		if _, err := io.ReadFull(gz, blk.Data); err != nil {
			return nil, fmt.Errorf("reading block data: %w", err)
		}
		snap.Blocks = append(snap.Blocks, blk)
	}

	return snap, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
