package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "github.com/getcharzp/go-kittentts"
)

// WavFormat 采样格式
type WavFormat int

const (
	WavFloat32 WavFormat = iota // IEEE float，fmt 3
	WavInt16                    // PCM，fmt 1
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

func (f WavFormat) String() string {
	if f == WavInt16 {
		return "s16"
	}
	return "f32"
}

// ParseWavFormat 解析采样格式，空字符串为 f32
func ParseWavFormat(s string) (WavFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "f32", "float32", "float":
		return WavFloat32, nil
	case "s16", "i16", "int16", "pcm16":
		return WavInt16, nil
	default:
		return 0, speech.NewError(speech.KindInvalidArgument, "format "+s, fmt.Errorf("可选值 f32, s16"))
	}
}

func clamp(v float32) float32 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// EncodeWav 写入单声道 WAV，采样先截断到 [-1, 1]
func EncodeWav(w io.Writer, x []float32, sampleRate int, format WavFormat) error {
	bits := 32
	code := uint16(wavFormatIEEEFloat)
	if format == WavInt16 {
		bits, code = 16, wavFormatPCM
	}
	blockAlign := bits / 8
	dataLen := len(x) * blockAlign

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], code)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bits))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	data := buf[44:]
	for i, v := range x {
		v = clamp(v)
		if format == WavInt16 {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(math.Round(float64(v)*32767))))
		} else {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}
	}
	_, err := w.Write(buf)
	return err
}

// WavBytes 编码为 WAV 字节
func WavBytes(x []float32, sampleRate int, format WavFormat) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeWav(&buf, x, sampleRate, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWavFile 写入 WAV 文件，先写临时文件再重命名
func WriteWavFile(path string, x []float32, sampleRate int, format WavFormat) error {
	data, err := WavBytes(x, sampleRate, format)
	if err != nil {
		return speech.NewError(speech.KindIO, path, err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic 原子写入文件
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return speech.NewError(speech.KindIO, path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return speech.NewError(speech.KindIO, path, err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return speech.NewError(speech.KindIO, path, err)
	}
	return nil
}

// WavInfo WAV 文件参数
type WavInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Format        WavFormat
	Frames        int // 每声道采样数
}

// Duration 音频时长
func (i WavInfo) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(i.Frames) * time.Second / time.Duration(i.SampleRate)
}

// DecodeWav 解析 16 位 PCM 或 32 位 float 的 WAV，多声道按交错顺序返回
func DecodeWav(r io.Reader) ([]float32, WavInfo, error) {
	var info WavInfo
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, info, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, info, errors.New("不是 RIFF/WAVE 文件")
	}

	var (
		code     uint16
		haveFmt  bool
		pcm      []byte
		havePCM  bool
		chunkPos = 12
	)
	for chunkPos+8 <= len(data) {
		id := string(data[chunkPos : chunkPos+4])
		size := int(binary.LittleEndian.Uint32(data[chunkPos+4 : chunkPos+8]))
		body := chunkPos + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, info, errors.New("fmt 块长度不足")
			}
			c := data[body : body+size]
			code = binary.LittleEndian.Uint16(c[0:2])
			info.Channels = int(binary.LittleEndian.Uint16(c[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(c[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(c[14:16]))
			if code == wavFormatExtensible && size >= 26 {
				code = binary.LittleEndian.Uint16(c[24:26])
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
			havePCM = true
		}
		// 块按偶数字节对齐
		chunkPos = body + size + size%2
	}
	if !haveFmt || !havePCM {
		return nil, info, errors.New("缺少 fmt 或 data 块")
	}
	if info.Channels <= 0 {
		return nil, info, fmt.Errorf("声道数非法: %d", info.Channels)
	}

	var samples []float32
	switch {
	case code == wavFormatPCM && info.BitsPerSample == 16:
		info.Format = WavInt16
		samples = make([]float32, len(pcm)/2)
		for i := range samples {
			samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32767
		}
	case code == wavFormatIEEEFloat && info.BitsPerSample == 32:
		info.Format = WavFloat32
		samples = make([]float32, len(pcm)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:]))
		}
	default:
		return nil, info, fmt.Errorf("不支持的采样格式: fmt=%d bits=%d", code, info.BitsPerSample)
	}
	info.Frames = len(samples) / info.Channels
	return samples, info, nil
}

// ReadWavFile 读取 WAV 文件
func ReadWavFile(path string) ([]float32, WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WavInfo{}, speech.NewError(speech.KindIO, path, err)
	}
	defer f.Close()
	samples, info, err := DecodeWav(f)
	if err != nil {
		return nil, info, speech.NewError(speech.KindIO, path, err)
	}
	return samples, info, nil
}
