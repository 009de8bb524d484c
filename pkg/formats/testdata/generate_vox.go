//go:build ignore

// This program generates a small multi-model VOX scene for unit tests.
// Run with: go run generate_vox.go
package main

import (
	"bytes"
	"encoding/binary"
	"os"
)

var chunks bytes.Buffer

func write(b *bytes.Buffer, vals ...any) {
	for _, v := range vals {
		binary.Write(b, binary.LittleEndian, v)
	}
}

func dict(kv ...string) []byte {
	var b bytes.Buffer
	write(&b, int32(len(kv)/2))
	for _, s := range kv {
		write(&b, int32(len(s)))
		b.WriteString(s)
	}
	return b.Bytes()
}

func chunk(tag string, content []byte) {
	chunks.WriteString(tag)
	write(&chunks, int32(len(content)), int32(0))
	chunks.Write(content)
}

func model(x, y, z int32, voxels ...[4]byte) {
	var size, xyzi bytes.Buffer
	write(&size, x, y, z)
	chunk("SIZE", size.Bytes())
	write(&xyzi, int32(len(voxels)))
	for _, v := range voxels {
		xyzi.Write(v[:])
	}
	chunk("XYZI", xyzi.Bytes())
}

func transform(id, child int32, attrs, frame []byte) {
	var b bytes.Buffer
	write(&b, id)
	b.Write(attrs)
	write(&b, child, int32(-1), int32(0), int32(1))
	b.Write(frame)
	chunk("nTRN", b.Bytes())
}

func shape(id, modelID int32) {
	var b bytes.Buffer
	write(&b, id)
	b.Write(dict())
	write(&b, int32(1), modelID)
	b.Write(dict())
	chunk("nSHP", b.Bytes())
}

func matl(id int32, kv ...string) {
	var b bytes.Buffer
	write(&b, id)
	b.Write(dict(kv...))
	chunk("MATL", b.Bytes())
}

func main() {
	// Model 0: five voxels over three layers, model 1: a single lamp voxel
	model(2, 2, 3, [4]byte{0, 0, 0, 1}, [4]byte{1, 0, 0, 1}, [4]byte{0, 1, 0, 2}, [4]byte{0, 0, 1, 3}, [4]byte{0, 0, 2, 4})
	model(1, 1, 1, [4]byte{0, 0, 0, 5})

	// Scene: root transform -> group -> {body, lamp}
	transform(0, 1, dict(), dict())
	var group bytes.Buffer
	write(&group, int32(1))
	group.Write(dict())
	write(&group, int32(2), int32(2), int32(4))
	chunk("nGRP", group.Bytes())
	transform(2, 3, dict("_name", "body"), dict("_t", "0 0 2"))
	shape(3, 0)
	transform(4, 5, dict("_name", "lamp"), dict("_t", "4 0 0"))
	shape(5, 1)

	// Palette entry i is (i, 255-i, 128, 255)
	var rgba bytes.Buffer
	for i := 0; i < 256; i++ {
		rgba.Write([]byte{byte(i), byte(255 - i), 128, 255})
	}
	chunk("RGBA", rgba.Bytes())

	matl(5, "_type", "_emit", "_emit", "0.8", "_flux", "1")
	matl(2, "_type", "_metal", "_rough", "0.2", "_metal", "0.9")

	// Unknown chunk, skipped by the parser
	chunk("rOBJ", dict())

	var out bytes.Buffer
	out.WriteString("VOX ")
	write(&out, int32(150))
	out.WriteString("MAIN")
	write(&out, int32(0), int32(chunks.Len()))
	out.Write(chunks.Bytes())

	if err := os.WriteFile("scene.vox", out.Bytes(), 0644); err != nil {
		panic(err)
	}
}
