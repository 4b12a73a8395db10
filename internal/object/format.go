package object

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Binary serialization for a compiled Chunk. Nothing in the CLI writes
// these files; the codec exists for embedders that want to cache compiled
// chunks between runs.

const (
	magicNumber   uint32 = 0x57495350 // "WISP"
	formatVersion uint32 = 1
)

const (
	constTypeNumber   byte = 0x01
	constTypeString   byte = 0x02
	constTypeBool     byte = 0x03
	constTypeNil      byte = 0x04
	constTypeFunction byte = 0x05
)

// EncodeChunk serializes a compiled chunk to w. Constants that are
// themselves FunctionObj values (nested closures) are encoded recursively.
func EncodeChunk(c *Chunk, w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, magicNumber); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(c.Constants))); err != nil {
		return err
	}
	for i, v := range c.Constants {
		if err := writeConstant(w, v); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	if err := writeUint32(w, uint32(len(c.Code))); err != nil {
		return err
	}
	if _, err := w.Write(c.Code); err != nil {
		return err
	}
	for _, line := range c.Lines {
		if err := writeUint32(w, uint32(line)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeChunk reads a chunk previously written by EncodeChunk. heap is used
// to intern any string constants and allocate any nested function objects.
func DecodeChunk(r io.Reader, heap *Heap) (*Chunk, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("invalid magic number: 0x%08X", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported bytecode version: %d", version)
	}

	constCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	constants := make([]Value, constCount)
	for i := range constants {
		v, err := readConstant(r, heap)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constants[i] = v
	}

	codeLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}

	lines := make([]int, codeLen)
	for i := range lines {
		line, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		lines[i] = int(line)
	}

	return &Chunk{Code: code, Lines: lines, Constants: constants}, nil
}

func writeConstant(w io.Writer, v Value) error {
	switch {
	case v.IsNumber():
		if err := writeByte(w, constTypeNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v.AsNumber())
	case v.IsString():
		if err := writeByte(w, constTypeString); err != nil {
			return err
		}
		return writeString(w, v.AsGoString())
	case v.IsBool():
		if err := writeByte(w, constTypeBool); err != nil {
			return err
		}
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return writeByte(w, b)
	case v.IsNil():
		return writeByte(w, constTypeNil)
	case v.IsFunction():
		if err := writeByte(w, constTypeFunction); err != nil {
			return err
		}
		return writeFunction(w, v.AsFunction())
	default:
		return fmt.Errorf("unsupported constant type for serialization")
	}
}

func readConstant(r io.Reader, heap *Heap) (Value, error) {
	t, err := readByteVal(r)
	if err != nil {
		return Nil, err
	}
	switch t {
	case constTypeNumber:
		var n float64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Nil, err
		}
		return Number(n), nil
	case constTypeString:
		s, err := readString(r)
		if err != nil {
			return Nil, err
		}
		return FromObj(heap.InternString(s)), nil
	case constTypeBool:
		b, err := readByteVal(r)
		if err != nil {
			return Nil, err
		}
		return Bool(b != 0), nil
	case constTypeNil:
		return Nil, nil
	case constTypeFunction:
		fn, err := readFunction(r, heap)
		if err != nil {
			return Nil, err
		}
		return FromObj(fn), nil
	default:
		return Nil, fmt.Errorf("unknown constant type: 0x%02X", t)
	}
}

func writeFunction(w io.Writer, fn *FunctionObj) error {
	name := ""
	hasName := fn.Name != nil
	if hasName {
		name = fn.Name.Chars
	}
	if err := writeByte(w, boolByte(hasName)); err != nil {
		return err
	}
	if err := writeString(w, name); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(fn.Arity)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(fn.UpvalueCount)); err != nil {
		return err
	}
	return EncodeChunk(&fn.Chunk, w)
}

func readFunction(r io.Reader, heap *Heap) (*FunctionObj, error) {
	hasName, err := readByteVal(r)
	if err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	arity, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	upvalueCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	chunk, err := DecodeChunk(r, heap)
	if err != nil {
		return nil, err
	}

	fn := heap.NewFunction()
	fn.Arity = int(arity)
	fn.UpvalueCount = int(upvalueCount)
	fn.Chunk = *chunk
	if hasName != 0 {
		fn.Name = heap.InternString(name)
	}
	return fn, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeByte(w io.Writer, b byte) error { return binary.Write(w, binary.LittleEndian, b) }

func readByteVal(r io.Reader) (byte, error) {
	var b byte
	err := binary.Read(r, binary.LittleEndian, &b)
	return b, err
}

func writeUint32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
