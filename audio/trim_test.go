package audio

import (
	"errors"
	"math"
	"testing"

	speech "github.com/getcharzp/go-kittentts"
)

const sr = 24000

func sine(n int, freq float64) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/sr))
	}
	return x
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestTrimSilenceOnly(t *testing.T) {
	x := make([]float32, 48000)
	got := Trim(x, sr, DefaultTrimOptions())
	if len(got) != len(x) {
		t.Fatalf("len = %d, want %d", len(got), len(x))
	}
}

func TestTrimEmpty(t *testing.T) {
	if got := Trim(nil, sr, DefaultTrimOptions()); len(got) != 0 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestTrimClickless(t *testing.T) {
	x := concat(make([]float32, 24000), sine(24000, 440), make([]float32, 24000))
	got := Trim(x, sr, DefaultTrimOptions())

	if len(got) < 24000 || len(got) > 48000+720 {
		t.Fatalf("len = %d, want within [24000, 48720]", len(got))
	}
	// 开头 98 帧静音后回退 5ms，结尾多保留 30ms
	if len(got) != 25320 {
		t.Fatalf("len = %d, want 25320", len(got))
	}
	if got[0] != 0 || got[len(got)-1] != 0 {
		t.Fatalf("edges = %v, %v; want 0", got[0], got[len(got)-1])
	}
	// 未经淡化的区域与原信号一致
	if got[1000] != x[23400+1000] {
		t.Fatalf("body sample changed: %v != %v", got[1000], x[23400+1000])
	}
}

func TestTrimKeepsTightClip(t *testing.T) {
	// 首尾静音都短于 60ms，不做裁剪
	x := concat(make([]float32, 480), sine(12000, 220), make([]float32, 480))
	got := Trim(x, sr, DefaultTrimOptions())
	if len(got) != len(x) {
		t.Fatalf("len = %d, want %d", len(got), len(x))
	}
	if got[0] != 0 || got[len(got)-1] != 0 {
		t.Fatalf("fades not applied")
	}
}

func TestTrimNeverGrows(t *testing.T) {
	inputs := [][]float32{
		sine(100, 440),
		sine(5000, 300),
		concat(make([]float32, 10000), sine(3000, 440)),
		concat(sine(3000, 440), make([]float32, 10000)),
	}
	for i, x := range inputs {
		if got := Trim(x, sr, DefaultTrimOptions()); len(got) > len(x) {
			t.Errorf("case %d: len %d > %d", i, len(got), len(x))
		}
	}
}

func TestTrimFixed(t *testing.T) {
	x := make([]float32, 20000)
	for i := range x {
		x[i] = float32(i)
	}
	got := TrimFixed(x, 5000, 10000)
	if len(got) != 5000 || got[0] != 5000 || got[len(got)-1] != 9999 {
		t.Fatalf("TrimFixed = len %d [%v..%v]", len(got), got[0], got[len(got)-1])
	}
	short := make([]float32, 15000)
	if got := TrimFixed(short, 5000, 10000); len(got) != len(short) {
		t.Fatalf("short clip trimmed to %d", len(got))
	}
}

func TestParseTrimPolicy(t *testing.T) {
	cases := map[string]TrimPolicy{"": TrimAdaptive, "adaptive": TrimAdaptive, "Fixed": TrimFixedStrip, "none": TrimNone}
	for in, want := range cases {
		got, err := ParseTrimPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseTrimPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTrimPolicy("aggressive"); !errors.Is(err, speech.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyTrim(t *testing.T) {
	x := concat(make([]float32, 24000), sine(24000, 440), make([]float32, 24000))
	if got := ApplyTrim(TrimNone, x, sr); len(got) != len(x) {
		t.Fatalf("none: len = %d", len(got))
	}
	if got := ApplyTrim(TrimFixedStrip, x, sr); len(got) != len(x)-15000 {
		t.Fatalf("fixed: len = %d", len(got))
	}
	if got := ApplyTrim(TrimAdaptive, x, sr); len(got) != 25320 {
		t.Fatalf("adaptive: len = %d", len(got))
	}
}

// 1kHz 采样下 10ms 帧、10ms 帧移，帧互不重叠
func coarseTrimOptions() TrimOptions {
	return TrimOptions{TopDB: 40, FrameMs: 10, HopMs: 10, MinSilenceMs: 60, EndPadMs: 30}
}

func constant(n int, v float32) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = v
	}
	return x
}

func TestTrimIgnoresSingleFrameSpike(t *testing.T) {
	// 第 20 帧单独的尖峰，正文位于 [500, 900)
	x := concat(make([]float32, 200), constant(10, 1), make([]float32, 290), constant(400, 0.5), make([]float32, 100))
	got := Trim(x, 1000, coarseTrimOptions())

	// 起点 500 回退 5，终点 900 加 30
	if len(got) != 930-495 {
		t.Fatalf("len = %d, want %d", len(got), 930-495)
	}
	for i, v := range got {
		if v > 0.5 {
			t.Fatalf("spike kept at %d", i)
		}
	}
	if got[5] != 0.5 {
		t.Fatalf("got[5] = %v, want body sample 0.5", got[5])
	}
}

func TestTrimKeepsShortTrailingSilence(t *testing.T) {
	// 开头 500 个静音采样，结尾只有 30 个
	x := concat(make([]float32, 500), constant(470, 0.5), make([]float32, 30))
	got := Trim(x, 1000, coarseTrimOptions())

	// 开头被裁掉，结尾保留到最后一个采样
	if len(got) != len(x)-495 {
		t.Fatalf("len = %d, want %d", len(got), len(x)-495)
	}
	if got[969-495] != 0.5 {
		t.Fatalf("last voiced sample = %v, want 0.5", got[969-495])
	}
}
