package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"roadloop/pkg/geo"
)

const (
	magicBytes = "RLGRAPH1"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
	maxVia     = 200_000_000
)

// fileHeader is the binary snapshot header.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
	NumVia   uint32 // total via points across all edges
}

// csr is the flattened edge layout written to disk.
type csr struct {
	firstOut []uint32 // len NumNodes+1
	head     []uint32
	weight   []float64
	viaFirst []uint32 // len NumEdges+1
	viaLon   []float64
	viaLat   []float64
}

func flatten(g *Graph) csr {
	n := g.NumNodes()
	c := csr{
		firstOut: make([]uint32, n+1),
		head:     make([]uint32, 0, g.NumEdges),
		weight:   make([]float64, 0, g.NumEdges),
		viaFirst: make([]uint32, 0, g.NumEdges+1),
	}
	for u := range n {
		for _, e := range g.Adj[u] {
			c.head = append(c.head, uint32(e.To))
			c.weight = append(c.weight, e.Weight)
			c.viaFirst = append(c.viaFirst, uint32(len(c.viaLon)))
			for _, p := range e.Via {
				c.viaLon = append(c.viaLon, p.Lon())
				c.viaLat = append(c.viaLat, p.Lat())
			}
		}
		c.firstOut[u+1] = uint32(len(c.head))
	}
	c.viaFirst = append(c.viaFirst, uint32(len(c.viaLon)))
	return c
}

// WriteBinary writes a snapshot of g to path atomically (temp file + rename).
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	bw := bufio.NewWriter(f)
	if err := WriteSnapshot(bw, g); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// WriteSnapshot serializes g to w followed by a CRC32 trailer.
func WriteSnapshot(out io.Writer, g *Graph) error {
	c := flatten(g)

	crcWriter := crc32Writer{w: out, hash: crc32.NewIEEE()}
	w := &crcWriter

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(g.NumNodes()),
		NumEdges: uint32(len(c.head)),
		NumVia:   uint32(len(c.viaLon)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	lat := make([]float64, g.NumNodes())
	lon := make([]float64, g.NumNodes())
	count := make([]uint32, g.NumNodes())
	for i, n := range g.Nodes {
		lat[i], lon[i], count[i] = n.Lat, n.Lon, uint32(n.Count)
	}

	if err := writeFloat64Slice(w, lat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, lon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}
	if err := writeUint32Slice(w, count); err != nil {
		return fmt.Errorf("write NodeCount: %w", err)
	}
	if err := writeUint32Slice(w, c.firstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeUint32Slice(w, c.head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeFloat64Slice(w, c.weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}
	if err := writeUint32Slice(w, c.viaFirst); err != nil {
		return fmt.Errorf("write ViaFirst: %w", err)
	}
	if err := writeFloat64Slice(w, c.viaLon); err != nil {
		return fmt.Errorf("write ViaLon: %w", err)
	}
	if err := writeFloat64Slice(w, c.viaLat); err != nil {
		return fmt.Errorf("write ViaLat: %w", err)
	}

	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(out, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

// ReadBinary loads a snapshot written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(bufio.NewReader(f))
}

// ReadSnapshot deserializes a snapshot and verifies its checksum and
// CSR invariants.
func ReadSnapshot(in io.Reader) (*Graph, error) {
	crcReader := crc32Reader{r: in, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	if hdr.NumVia > maxVia {
		return nil, fmt.Errorf("NumVia %d exceeds limit %d", hdr.NumVia, maxVia)
	}

	n, m, nv := int(hdr.NumNodes), int(hdr.NumEdges), int(hdr.NumVia)
	var (
		lat, lon, weight, viaLon, viaLat []float64
		count, firstOut, head, viaFirst  []uint32
		err                              error
	)
	if lat, err = readFloat64Slice(r, n); err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	if lon, err = readFloat64Slice(r, n); err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	if count, err = readUint32Slice(r, n); err != nil {
		return nil, fmt.Errorf("read NodeCount: %w", err)
	}
	if firstOut, err = readUint32Slice(r, n+1); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if head, err = readUint32Slice(r, m); err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	if weight, err = readFloat64Slice(r, m); err != nil {
		return nil, fmt.Errorf("read Weight: %w", err)
	}
	if viaFirst, err = readUint32Slice(r, m+1); err != nil {
		return nil, fmt.Errorf("read ViaFirst: %w", err)
	}
	if viaLon, err = readFloat64Slice(r, nv); err != nil {
		return nil, fmt.Errorf("read ViaLon: %w", err)
	}
	if viaLat, err = readFloat64Slice(r, nv); err != nil {
		return nil, fmt.Errorf("read ViaLat: %w", err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(in, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(firstOut, head, uint32(n)); err != nil {
		return nil, fmt.Errorf("CSR invalid: %w", err)
	}
	if err := validateCSR(viaFirst, viaLon, uint32(m)); err != nil {
		return nil, fmt.Errorf("via index invalid: %w", err)
	}

	g := New(n)
	for i := range n {
		g.AddNode(Node{Lat: lat[i], Lon: lon[i], Count: int(count[i])})
	}
	for u := range n {
		for e := firstOut[u]; e < firstOut[u+1]; e++ {
			var via []geo.Point
			if vs, ve := viaFirst[e], viaFirst[e+1]; ve > vs {
				via = make([]geo.Point, 0, ve-vs)
				for k := vs; k < ve; k++ {
					via = append(via, geo.Point{viaLon[k], viaLat[k]})
				}
			}
			g.SetEdge(u, int(head[e]), weight[e], via)
		}
	}
	return g, nil
}

// validateCSR checks that offsets are monotonic and cover data exactly,
// and for integer targets that each one is below limit.
func validateCSR[T uint32 | float64](firstOut []uint32, data []T, limit uint32) error {
	if uint32(len(firstOut)) != limit+1 {
		return fmt.Errorf("FirstOut length %d != %d", len(firstOut), limit+1)
	}
	if firstOut[0] != 0 {
		return fmt.Errorf("FirstOut[0] = %d, want 0", firstOut[0])
	}
	for i := uint32(1); i <= limit; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	if int(firstOut[limit]) != len(data) {
		return fmt.Errorf("FirstOut[%d]=%d != data length %d", limit, firstOut[limit], len(data))
	}
	if heads, ok := any(data).([]uint32); ok {
		for i, h := range heads {
			if h >= limit {
				return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, limit)
			}
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
