// Package artifact reads and writes fitted-model files in the safetensors
// layout: an 8-byte little-endian header length, a JSON header describing
// each tensor and a "__metadata__" string map, then the raw tensor bytes.
package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const (
	metadataKey = "__metadata__"

	// KindKey and VersionKey are the metadata entries every artifact carries.
	KindKey    = "format"
	VersionKey = "format_version"

	// maxHeaderLen bounds the JSON header to reject garbage length prefixes.
	maxHeaderLen = 100 << 20
)

// ErrFormat is returned for files that are not valid artifacts or do not
// match the expected kind and version.
var ErrFormat = errors.New("artifact: invalid format")

// DType names an element type using safetensors spelling.
type DType string

const (
	F64 DType = "F64"
	F32 DType = "F32"
	I64 DType = "I64"
)

func (d DType) size() int {
	switch d {
	case F64, I64:
		return 8
	case F32:
		return 4
	}
	return 0
}

// Tensor is a dense little-endian array with a shape.
type Tensor struct {
	DType DType
	Shape []int
	Data  []byte
}

// File is the in-memory form of an artifact.
type File struct {
	Metadata map[string]string
	Tensors  map[string]Tensor
}

// New creates an empty File of the given kind and format version.
func New(kind, version string) *File {
	return &File{
		Metadata: map[string]string{KindKey: kind, VersionKey: version},
		Tensors:  make(map[string]Tensor),
	}
}

// Expect checks that f has the given kind and format version.
func (f *File) Expect(kind, version string) error {
	if got := f.Metadata[KindKey]; got != kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrFormat, got, kind)
	}
	if got := f.Metadata[VersionKey]; got != version {
		return fmt.Errorf("%w: %s version %q, want %q", ErrFormat, kind, got, version)
	}
	return nil
}

// Tensor returns the named tensor, checking its dtype and rank.
func (f *File) Tensor(name string, dtype DType, rank int) (Tensor, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return Tensor{}, fmt.Errorf("%w: tensor %q not found", ErrFormat, name)
	}
	if t.DType != dtype {
		return Tensor{}, fmt.Errorf("%w: tensor %q has dtype %s, want %s", ErrFormat, name, t.DType, dtype)
	}
	if len(t.Shape) != rank {
		return Tensor{}, fmt.Errorf("%w: tensor %q has shape %v, want rank %d", ErrFormat, name, t.Shape, rank)
	}
	return t, nil
}

// NewF64 packs values into an F64 tensor of the given shape.
func NewF64(shape []int, values []float64) Tensor {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return Tensor{DType: F64, Shape: shape, Data: data}
}

// NewI64 packs values into an I64 tensor of the given shape.
func NewI64(shape []int, values []int64) Tensor {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], uint64(v))
	}
	return Tensor{DType: I64, Shape: shape, Data: data}
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Float64s decodes an F64 or F32 tensor.
func (t Tensor) Float64s() ([]float64, error) {
	out := make([]float64, t.Len())
	switch t.DType {
	case F64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(t.Data[i*8:]))
		}
	case F32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:])))
		}
	default:
		return nil, fmt.Errorf("%w: cannot decode %s as float", ErrFormat, t.DType)
	}
	return out, nil
}

// Int64s decodes an I64 tensor.
func (t Tensor) Int64s() ([]int64, error) {
	if t.DType != I64 {
		return nil, fmt.Errorf("%w: cannot decode %s as int", ErrFormat, t.DType)
	}
	out := make([]int64, t.Len())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(t.Data[i*8:]))
	}
	return out, nil
}

type tensorHeader struct {
	DType       DType  `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Write encodes f to w. Tensors are laid out in name order and header keys
// are sorted, so equal files encode to equal bytes.
func Write(w io.Writer, f *File) error {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		if name == metadataKey {
			return fmt.Errorf("%w: reserved tensor name %q", ErrFormat, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	offset := 0
	for _, name := range names {
		t := f.Tensors[name]
		if t.DType.size() == 0 {
			return fmt.Errorf("%w: tensor %q has unsupported dtype %q", ErrFormat, name, t.DType)
		}
		if len(t.Data) != t.Len()*t.DType.size() {
			return fmt.Errorf("%w: tensor %q has %d bytes for shape %v", ErrFormat, name, len(t.Data), t.Shape)
		}
		shape := t.Shape
		if shape == nil {
			shape = []int{}
		}
		header[name] = tensorHeader{DType: t.DType, Shape: shape, DataOffsets: [2]int{offset, offset + len(t.Data)}}
		offset += len(t.Data)
	}
	if len(f.Metadata) > 0 {
		header[metadataKey] = f.Metadata
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("artifact: marshal header: %w", err)
	}
	// Pad with spaces so tensor data starts 8-byte aligned.
	if pad := (8 - len(hdr)%8) % 8; pad > 0 {
		hdr = append(hdr, bytes.Repeat([]byte{' '}, pad)...)
	}

	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(hdr)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("artifact: write: %w", err)
	}
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("artifact: write: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(f.Tensors[name].Data); err != nil {
			return fmt.Errorf("artifact: write %s: %w", name, err)
		}
	}
	return nil
}

// Read decodes an artifact from r.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("artifact: read: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: file too small: %d bytes", ErrFormat, len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > maxHeaderLen || uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("%w: header length %d exceeds file size", ErrFormat, headerLen)
	}
	body := data[8+headerLen:]

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrFormat, err)
	}

	f := &File{Metadata: map[string]string{}, Tensors: make(map[string]Tensor, len(header))}
	for name, raw := range header {
		if name == metadataKey {
			if err := json.Unmarshal(raw, &f.Metadata); err != nil {
				return nil, fmt.Errorf("%w: parse metadata: %v", ErrFormat, err)
			}
			continue
		}
		var meta tensorHeader
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: parse tensor %q: %v", ErrFormat, name, err)
		}
		size := meta.DType.size()
		if size == 0 {
			return nil, fmt.Errorf("%w: tensor %q has unsupported dtype %q", ErrFormat, name, meta.DType)
		}
		t := Tensor{DType: meta.DType, Shape: meta.Shape}
		start, end := meta.DataOffsets[0], meta.DataOffsets[1]
		if start < 0 || end < start || end > len(body) {
			return nil, fmt.Errorf("%w: tensor %q data range [%d:%d] exceeds %d bytes",
				ErrFormat, name, start, end, len(body))
		}
		if end-start != t.Len()*size {
			return nil, fmt.Errorf("%w: tensor %q data size %d doesn't match shape %v",
				ErrFormat, name, end-start, meta.Shape)
		}
		t.Data = body[start:end]
		f.Tensors[name] = t
	}
	return f, nil
}

// WriteFile writes f to path through a temporary sibling file that is
// renamed into place, replacing any existing file.
func WriteFile(path string, f *File) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, f); err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("artifact: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: rename into %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the artifact at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	defer fh.Close()

	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return f, nil
}
