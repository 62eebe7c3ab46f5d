package kittentts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"

	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/audio"
	"github.com/getcharzp/go-kittentts/cache"
	"github.com/getcharzp/go-kittentts/text/langdetect"
	"github.com/getcharzp/go-kittentts/voice"
)

// fakeRunner 返回 [静音 1s, 正弦 1s, 静音 1s]，并记录调用
type fakeRunner struct {
	mu       sync.Mutex
	calls    int
	lastIDs  [][]int64
	lastSpd  float32
	active   int32
	overlaps int32
	err      error
}

func (r *fakeRunner) Run(inputIDs [][]int64, style []float32, speed float32) ([]float32, error) {
	if atomic.AddInt32(&r.active, 1) > 1 {
		atomic.AddInt32(&r.overlaps, 1)
	}
	defer atomic.AddInt32(&r.active, -1)

	r.mu.Lock()
	r.calls++
	r.lastIDs = inputIDs
	r.lastSpd = speed
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	out := make([]float32, 3*SampleRate)
	for i := SampleRate; i < 2*SampleRate; i++ {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i-SampleRate)/SampleRate))
	}
	return out, nil
}

func (r *fakeRunner) Destroy() error { return nil }

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeBackend struct{ fail bool }

func (b fakeBackend) TextToPhonemes(text, lang string) ([]string, error) {
	if b.fail {
		return nil, errors.New("espeak unavailable")
	}
	var out []string
	for range strings.Fields(text) {
		out = append(out, "həlˈoʊ ")
	}
	return out, nil
}

func emptyBank(t *testing.T) *voice.Bank {
	t.Helper()
	var buf bytes.Buffer
	if err := zip.NewWriter(&buf).Close(); err != nil {
		t.Fatal(err)
	}
	bank, err := voice.LoadReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	return bank
}

func testEngine(t *testing.T, cfg Config) (*Engine, *fakeRunner) {
	r := &fakeRunner{}
	return newEngine(cfg, r, emptyBank(t), fakeBackend{}, nil), r
}

func TestGenerateValidation(t *testing.T) {
	e, r := testEngine(t, DefaultConfig())
	cases := []struct {
		text  string
		voice string
		speed float32
		want  error
	}{
		{"", DefaultVoice, 1, speech.ErrInvalidArgument},
		{"   ", DefaultVoice, 1, speech.ErrInvalidArgument},
		{"hi", "nonexistent", 1, speech.ErrUnknownVoice},
		{"hi", DefaultVoice, 0, speech.ErrInvalidArgument},
		{"hi", DefaultVoice, -1, speech.ErrInvalidArgument},
		{"hi", DefaultVoice, float32(math.NaN()), speech.ErrInvalidArgument},
		{"hi", DefaultVoice, float32(math.Inf(1)), speech.ErrInvalidArgument},
	}
	for _, c := range cases {
		if _, err := e.Generate(c.text, c.voice, c.speed); !errors.Is(err, c.want) {
			t.Errorf("Generate(%q, %q, %v) err = %v, want %v", c.text, c.voice, c.speed, err, c.want)
		}
	}
	if r.callCount() != 0 {
		t.Fatalf("inference ran %d times for invalid input", r.callCount())
	}

	_, err := e.Generate("hi", "nonexistent", 1)
	if err.Error() != "UnknownVoice: nonexistent" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestGenerateFramesTokens(t *testing.T) {
	e, r := testEngine(t, DefaultConfig())
	out, err := e.Generate("Hello, world.", DefaultVoice, 1.25)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("empty output")
	}

	ids := r.lastIDs[0]
	if len(r.lastIDs) != 1 || len(ids) < 3 || ids[0] != 0 || ids[len(ids)-1] != 0 {
		t.Fatalf("input_ids = %v", r.lastIDs)
	}
	if r.lastSpd != 1.25 {
		t.Fatalf("speed = %v", r.lastSpd)
	}
	// 自适应裁剪后首尾为 0
	if out[0] != 0 || out[len(out)-1] != 0 {
		t.Fatalf("output edges not faded")
	}
	if len(out) >= 3*SampleRate {
		t.Fatalf("output not trimmed: %d", len(out))
	}
}

func TestGenerateFallbackStillRuns(t *testing.T) {
	r := &fakeRunner{}
	e := newEngine(DefaultConfig(), r, emptyBank(t), fakeBackend{fail: true}, nil)
	if _, err := e.Generate("Hello, world.", DefaultVoice, 1); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ids := r.lastIDs[0]; ids[0] != 0 || ids[len(ids)-1] != 0 {
		t.Fatalf("input_ids = %v", ids)
	}
}

func TestGenerateTrimPolicies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trim = audio.TrimNone
	e, _ := testEngine(t, cfg)
	out, err := e.Generate("hi", DefaultVoice, 1)
	if err != nil || len(out) != 3*SampleRate {
		t.Fatalf("none: len = %d, %v", len(out), err)
	}

	cfg.Trim = audio.TrimFixedStrip
	e, _ = testEngine(t, cfg)
	out, _ = e.Generate("hi", DefaultVoice, 1)
	if len(out) != 3*SampleRate-audio.FixedTrimHead-audio.FixedTrimTail {
		t.Fatalf("fixed: len = %d", len(out))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig())
	a, _ := e.Generate("Hello, world.", DefaultVoice, 1)
	b, _ := e.Generate("Hello, world.", DefaultVoice, 1)
	if len(a) != len(b) {
		t.Fatalf("len %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestGenerateInferenceError(t *testing.T) {
	e, r := testEngine(t, DefaultConfig())
	r.err = errors.New("shape mismatch")
	if _, err := e.Generate("hi", DefaultVoice, 1); !errors.Is(err, speech.ErrInference) {
		t.Fatalf("err = %v, want InferenceError", err)
	}
}

func TestGenerateConcurrent(t *testing.T) {
	e, r := testEngine(t, DefaultConfig())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Generate("Hello there", DefaultVoice, 1); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	wg.Wait()
	if r.callCount() != 8 {
		t.Fatalf("calls = %d", r.callCount())
	}
	if atomic.LoadInt32(&r.overlaps) != 0 {
		t.Fatalf("inference calls overlapped")
	}
}

func TestGenerateToWav(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig())
	data, err := e.GenerateToWav("hi", DefaultVoice, 1)
	if err != nil {
		t.Fatalf("GenerateToWav: %v", err)
	}
	_, info, err := audio.DecodeWav(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWav: %v", err)
	}
	if info.SampleRate != SampleRate || info.Channels != 1 || info.Format != audio.WavFloat32 || info.Frames == 0 {
		t.Fatalf("info = %+v", info)
	}

	data, err = e.GenerateToWav("hi", DefaultVoice, 1, WavOptions{Format: audio.WavInt16})
	if err != nil {
		t.Fatalf("GenerateToWav(int16): %v", err)
	}
	if _, info, _ = audio.DecodeWav(bytes.NewReader(data)); info.Format != audio.WavInt16 {
		t.Fatalf("info = %+v", info)
	}
}

func TestGenerateToFile(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig())
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := e.GenerateToFile("Hello, world.", DefaultVoice, 1, path); err != nil {
		t.Fatalf("GenerateToFile: %v", err)
	}
	_, info, err := audio.ReadWavFile(path)
	if err != nil {
		t.Fatalf("ReadWavFile: %v", err)
	}
	if info.SampleRate != 24000 || info.Channels != 1 || info.Format != audio.WavFloat32 || info.Duration() <= 0 {
		t.Fatalf("info = %+v", info)
	}
}

func TestVoices(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig())
	if got := e.Voices(); len(got) != 8 || got[6] != DefaultVoice {
		t.Fatalf("Voices = %v", got)
	}
	if e.SampleRate() != 24000 {
		t.Fatalf("SampleRate = %d", e.SampleRate())
	}
}

func TestPhonemeCacheWired(t *testing.T) {
	store := cache.NewMemory()
	r := &fakeRunner{}
	e := newEngine(DefaultConfig(), r, emptyBank(t), fakeBackend{}, cache.NewPhonemeCache(store, "fake"))
	if _, err := e.Generate("Hello world", DefaultVoice, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), cache.Key(langdetect.DetectOrDefault("Hello world"), "Hello world")); err != nil {
		t.Fatalf("phonemes not cached: %v", err)
	}
	if err := e.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

func TestInferencerValidation(t *testing.T) {
	style := make([]float32, voice.StyleDim)
	if _, err := (&Inferencer{}).Infer([][]int64{{0, 0}}, style, 1); !errors.Is(err, speech.ErrInference) {
		t.Fatalf("nil runner err = %v", err)
	}
	in := NewInferencer(&fakeRunner{}, "model.onnx")
	bad := []struct {
		ids   [][]int64
		style []float32
	}{
		{nil, style},
		{[][]int64{{}}, style},
		{[][]int64{{0, 1, 0}, {0, 0}}, style},
		{[][]int64{{0, 0}}, style[:10]},
	}
	for i, c := range bad {
		if _, err := in.Infer(c.ids, c.style, 1); !errors.Is(err, speech.ErrInference) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}
	if _, err := in.Infer([][]int64{{0, 5, 0}}, style, 1); err != nil {
		t.Fatalf("valid input: %v", err)
	}
}

// countingSource 记录下载次数，始终失败
type countingSource struct{ fetches atomic.Int32 }

func (s *countingSource) Fetch(ctx context.Context, name string, w io.Writer) (int64, error) {
	s.fetches.Add(1)
	return 0, errors.New("offline")
}

func (s *countingSource) Location(name string) string { return "test://" + name }

func TestNewEngineRejectsProviderBeforeDownload(t *testing.T) {
	src := &countingSource{}
	cfg := DefaultConfig()
	cfg.ModelDir = t.TempDir()
	cfg.BaseURL = "http://127.0.0.1:0"
	cfg.Mirror = src
	cfg.Provider = "gpu"

	_, err := NewEngine(context.Background(), cfg)
	if !errors.Is(err, speech.ErrInvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
	if n := src.fetches.Load(); n != 0 {
		t.Fatalf("fetches = %d, want 0", n)
	}
}
