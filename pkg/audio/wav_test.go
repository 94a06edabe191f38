package audio

import (
	"bytes"
	"io"
	"testing"
)

// seekBuf is a minimal in-memory io.WriteSeeker backing WAVWriter in
// tests, since bytes.Buffer alone doesn't implement Seek.
type seekBuf struct {
	data []byte
	pos  int
}

func (b *seekBuf) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuf) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		b.pos = int(offset)
	case io.SeekEnd:
		b.pos = len(b.data) + int(offset)
	case io.SeekCurrent:
		b.pos += int(offset)
	}
	return int64(b.pos), nil
}

func TestWAVWriterSingleWrite(t *testing.T) {
	var buf seekBuf
	w := NewWAVWriter(&buf, 16000)

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	if _, err := w.Write(pcm); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wav := buf.data
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}
	if got, want := len(wav), wavHeaderSize+len(pcm); got != want {
		t.Errorf("expected length %d, got %d", want, got)
	}
	if !bytes.HasSuffix(wav, pcm) {
		t.Errorf("expected PCM data to follow the header verbatim")
	}
}

func TestWAVWriterChunkedWritesMatchSingleShot(t *testing.T) {
	pcm := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	var single seekBuf
	sw := NewWAVWriter(&single, 16000)
	sw.Write(pcm)
	sw.Close()

	var chunked seekBuf
	cw := NewWAVWriter(&chunked, 16000)
	for i := 0; i < len(pcm); i++ {
		cw.Write(pcm[i : i+1])
	}
	cw.Close()

	if !bytes.Equal(single.data, chunked.data) {
		t.Errorf("chunked writes produced a different file than one single write:\n%x\n%x", single.data, chunked.data)
	}
}

func TestWAVWriterPatchesDataSizeOnClose(t *testing.T) {
	var buf seekBuf
	w := NewWAVWriter(&buf, 16000)
	w.Write(make([]byte, 10))
	w.Write(make([]byte, 6))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	riffSize := uint32(buf.data[4]) | uint32(buf.data[5])<<8 | uint32(buf.data[6])<<16 | uint32(buf.data[7])<<24
	dataSize := uint32(buf.data[40]) | uint32(buf.data[41])<<8 | uint32(buf.data[42])<<16 | uint32(buf.data[43])<<24

	if dataSize != 16 {
		t.Errorf("expected data chunk size 16, got %d", dataSize)
	}
	if riffSize != 36+16 {
		t.Errorf("expected RIFF size %d, got %d", 36+16, riffSize)
	}
}

func TestWAVWriterCloseWithNoDataEmitsHeaderOnly(t *testing.T) {
	var buf seekBuf
	w := NewWAVWriter(&buf, 16000)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(buf.data) != wavHeaderSize {
		t.Errorf("expected header-only file of %d bytes, got %d", wavHeaderSize, len(buf.data))
	}
}
