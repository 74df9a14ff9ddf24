package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/Faultbox/glint/pkg/encoding"
)

// File is a file to store with Write.
type File struct {
	Name string // UTF-8; stored as EUC-KR
	Data []byte
}

// Write writes a version 0x200 archive holding files, each zlib-compressed.
func Write(w io.Writer, files []File) error {
	var body, table bytes.Buffer

	for _, f := range files {
		compressed, err := deflate(f.Data)
		if err != nil {
			return err
		}
		offset := uint32(body.Len())
		body.Write(compressed)

		table.Write(encoding.UTF8ToEUCKR(f.Name))
		table.WriteByte(0)
		var fields [17]byte
		binary.LittleEndian.PutUint32(fields[0:], uint32(len(compressed)))
		binary.LittleEndian.PutUint32(fields[4:], uint32(len(compressed)))
		binary.LittleEndian.PutUint32(fields[8:], uint32(len(f.Data)))
		fields[12] = flagFile
		binary.LittleEndian.PutUint32(fields[13:], offset)
		table.Write(fields[:])
	}

	compressedTable, err := deflate(table.Bytes())
	if err != nil {
		return err
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     0x200,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	sizes := []uint32{uint32(len(compressedTable)), uint32(table.Len())}
	if err := binary.Write(w, binary.LittleEndian, sizes); err != nil {
		return err
	}
	_, err = w.Write(compressedTable)
	return err
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
