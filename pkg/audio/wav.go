// Package audio holds small, self-contained audio container helpers used
// for diagnostics — currently a streaming PCM-to-WAV writer so a decoder
// session's raw s16le stream can be mirrored to disk for inspection
// without buffering the whole recording in memory first.
package audio

import (
	"encoding/binary"
	"io"
)

const wavHeaderSize = 44

// WAVWriter incrementally encodes mono 16-bit PCM into a canonical WAV
// container. Each call to Write appends its chunk directly to the
// underlying stream as it arrives, mirroring the way the decoder
// supervisor mirrors chunks into its debug recording one read() at a
// time; only Close needs to come back and patch the two chunk-size
// fields the 44-byte header reserves for them, since those aren't known
// until the stream ends.
type WAVWriter struct {
	w           io.WriteSeeker
	sampleRate  int
	dataBytes   uint32
	wroteHeader bool
}

// NewWAVWriter wraps w, an io.WriteSeeker positioned at its start (e.g. a
// freshly created *os.File), as a WAV encoder. sampleRate is the PCM
// sample rate (16000 for this module's pipeline).
func NewWAVWriter(w io.WriteSeeker, sampleRate int) *WAVWriter {
	return &WAVWriter{w: w, sampleRate: sampleRate}
}

// Write appends a chunk of mono 16-bit PCM, writing the placeholder
// header first if this is the first call.
func (w *WAVWriter) Write(pcm []byte) (int, error) {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return 0, err
		}
		w.wroteHeader = true
	}
	n, err := w.w.Write(pcm)
	w.dataBytes += uint32(n)
	return n, err
}

func (w *WAVWriter) writeHeader() error {
	var hdr [wavHeaderSize]byte
	copy(hdr[0:4], "RIFF")
	// sizes at [4:8] and [40:44] are placeholders, patched by Close.
	copy(hdr[8:12], "WAVE")

	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(w.sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(hdr[32:34], 2)                     // block align
	binary.LittleEndian.PutUint16(hdr[34:36], 16)                    // bits per sample

	copy(hdr[36:40], "data")

	_, err := w.w.Write(hdr[:])
	return err
}

// Close patches the RIFF and data chunk sizes now that the final PCM
// length is known. It is safe to call even if no PCM was ever written,
// in which case it emits an empty, header-only WAV file.
func (w *WAVWriter) Close() error {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(36+w.dataBytes)); err != nil {
		return err
	}
	if _, err := w.w.Seek(40, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, w.dataBytes); err != nil {
		return err
	}
	_, err := w.w.Seek(0, io.SeekEnd)
	return err
}
