package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	speech "github.com/getcharzp/go-kittentts"
)

func TestEncodeWavHeader(t *testing.T) {
	x := []float32{0, 0.5, -0.5, 2}
	data, err := WavBytes(x, 24000, WavFloat32)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 44+16 {
		t.Fatalf("len = %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:16]) != "WAVEfmt " || string(data[36:40]) != "data" {
		t.Fatalf("bad chunk ids")
	}
	le := binary.LittleEndian
	if le.Uint32(data[4:8]) != 36+16 {
		t.Fatalf("riff size = %d", le.Uint32(data[4:8]))
	}
	if le.Uint16(data[20:22]) != 3 || le.Uint16(data[22:24]) != 1 || le.Uint32(data[24:28]) != 24000 {
		t.Fatalf("fmt = %d ch = %d sr = %d", le.Uint16(data[20:22]), le.Uint16(data[22:24]), le.Uint32(data[24:28]))
	}
	if le.Uint32(data[28:32]) != 96000 || le.Uint16(data[32:34]) != 4 || le.Uint16(data[34:36]) != 32 {
		t.Fatalf("byte rate / block align / bits wrong")
	}
	// 超出范围的采样被截断
	if v := math.Float32frombits(le.Uint32(data[44+12:])); v != 1 {
		t.Fatalf("clamped sample = %v", v)
	}

	data, _ = WavBytes(x, 24000, WavInt16)
	if le.Uint16(data[20:22]) != 1 || le.Uint16(data[34:36]) != 16 || len(data) != 44+8 {
		t.Fatalf("int16 header wrong")
	}
	if v := int16(le.Uint16(data[44+2:])); v != 16384 {
		t.Fatalf("0.5 -> %d, want 16384", v)
	}
	if v := int16(le.Uint16(data[44+4:])); v != -16384 {
		t.Fatalf("-0.5 -> %d, want -16384", v)
	}
}

func TestWavRoundTrip(t *testing.T) {
	x := sine(2400, 440)
	x = append(x, 1, -1, 0)

	data, err := WavBytes(x, sr, WavFloat32)
	if err != nil {
		t.Fatal(err)
	}
	got, info, err := DecodeWav(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWav: %v", err)
	}
	if info.SampleRate != sr || info.Channels != 1 || info.Format != WavFloat32 || info.Frames != len(x) {
		t.Fatalf("info = %+v", info)
	}
	for i := range x {
		if got[i] != x[i] {
			t.Fatalf("float32 sample %d: %v != %v", i, got[i], x[i])
		}
	}

	data, _ = WavBytes(x, sr, WavInt16)
	got, info, err = DecodeWav(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWav: %v", err)
	}
	if info.Format != WavInt16 || info.BitsPerSample != 16 {
		t.Fatalf("info = %+v", info)
	}
	for i := range x {
		if d := math.Abs(float64(got[i] - x[i])); d > 1.0/32767 {
			t.Fatalf("int16 sample %d: |%v - %v| = %v", i, got[i], x[i], d)
		}
	}
}

func TestDecodeWavSkipsUnknownChunks(t *testing.T) {
	data, _ := WavBytes([]float32{0.25, -0.25}, 16000, WavFloat32)
	// 在 fmt 与 data 之间插入奇数长度的 LIST 块
	extra := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	patched := append(append(append([]byte{}, data[:36]...), extra...), data[36:]...)
	binary.LittleEndian.PutUint32(patched[4:8], uint32(len(patched)-8))

	got, info, err := DecodeWav(bytes.NewReader(patched))
	if err != nil {
		t.Fatalf("DecodeWav: %v", err)
	}
	if info.SampleRate != 16000 || len(got) != 2 || got[0] != 0.25 {
		t.Fatalf("got %v, info %+v", got, info)
	}
}

func TestDecodeWavRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWav(bytes.NewReader([]byte("hello"))); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWavInfoDuration(t *testing.T) {
	if d := (WavInfo{SampleRate: 24000, Frames: 36000}).Duration(); d != 1500*time.Millisecond {
		t.Fatalf("Duration = %v", d)
	}
}

func TestWriteWavFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.wav")
	if err := WriteWavFile(path, sine(240, 440), sr, WavFloat32); err != nil {
		t.Fatalf("WriteWavFile: %v", err)
	}
	_, info, err := ReadWavFile(path)
	if err != nil || info.Frames != 240 {
		t.Fatalf("ReadWavFile = %+v, %v", info, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestWriteWavFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := WriteWavFile(filepath.Join(blocker, "out.wav"), []float32{0}, sr, WavFloat32)
	if !errors.Is(err, speech.ErrIO) {
		t.Fatalf("err = %v, want IoError", err)
	}
}

func TestParseWavFormat(t *testing.T) {
	for in, want := range map[string]WavFormat{"": WavFloat32, "f32": WavFloat32, "S16": WavInt16, "int16": WavInt16} {
		if got, err := ParseWavFormat(in); err != nil || got != want {
			t.Errorf("ParseWavFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWavFormat("mp3"); !errors.Is(err, speech.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
