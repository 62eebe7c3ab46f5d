// Package audio 合成结果的静音裁剪与 WAV 读写
package audio

import (
	"fmt"
	"math"
	"strings"

	speech "github.com/getcharzp/go-kittentts"
)

// TrimOptions 自适应裁剪参数
type TrimOptions struct {
	TopDB        float64 // 低于峰值多少 dB 视为静音
	FrameMs      int     // 帧长
	HopMs        int     // 帧移
	MinSilenceMs int     // 首尾静音短于该值时不裁剪
	EndPadMs     int     // 结尾额外保留
}

// DefaultTrimOptions 默认裁剪参数
func DefaultTrimOptions() TrimOptions {
	return TrimOptions{TopDB: 40, FrameMs: 25, HopMs: 10, MinSilenceMs: 60, EndPadMs: 30}
}

const (
	startPullBackMs = 5
	fadeInMs        = 5
	fadeOutMs       = 10

	// FixedTrimHead 固定裁剪时去掉的开头采样数 (24kHz)
	FixedTrimHead = 5000
	// FixedTrimTail 固定裁剪时去掉的结尾采样数 (24kHz)
	FixedTrimTail = 10000
)

func msToSamples(ms, sr int) int {
	return int(math.Round(float64(ms) * float64(sr) / 1000))
}

// rmsEnvelope 逐帧计算 RMS，最后一帧可能不足 frameLen
func rmsEnvelope(x []float32, frameLen, hop int) []float32 {
	env := make([]float32, 0, len(x)/hop+1)
	for s := 0; s < len(x); s += hop {
		e := s + frameLen
		if e > len(x) {
			e = len(x)
		}
		var sum float64
		for _, v := range x[s:e] {
			sum += float64(v) * float64(v)
		}
		env = append(env, float32(math.Sqrt(sum/float64(e-s))))
		if e == len(x) {
			break
		}
	}
	return env
}

// Trim 基于 RMS 能量裁剪首尾静音并加淡入淡出
//
// 无有效能量或裁剪区间为空时原样返回
func Trim(x []float32, sr int, opt TrimOptions) []float32 {
	n := len(x)
	if n == 0 || sr <= 0 {
		return x
	}
	frameLen := max(msToSamples(opt.FrameMs, sr), 1)
	hop := max(msToSamples(opt.HopMs, sr), 1)

	env := rmsEnvelope(x, frameLen, hop)
	var ref float32
	for _, v := range env {
		if v > ref {
			ref = v
		}
	}
	if !(ref > 0) {
		return x
	}
	tau := ref * float32(math.Pow(10, -opt.TopDB/20))
	voiced := func(i int) bool { return env[i] >= tau }

	// 连续两帧有声才算开始，过滤孤立的咔嗒声
	startFrame := 0
	for i := 0; i+1 < len(env); i++ {
		if voiced(i) && voiced(i+1) {
			startFrame = i
			break
		}
	}
	endFrame := len(env) - 1
	for i := len(env) - 1; i >= 1; i-- {
		if voiced(i) && voiced(i-1) {
			endFrame = i
			break
		}
	}

	start := startFrame * hop
	end := min((endFrame+1)*hop, n)

	minSilence := msToSamples(opt.MinSilenceMs, sr)
	if start < minSilence {
		start = 0
	}
	if n-end < minSilence {
		end = n
	}

	end = min(end+msToSamples(opt.EndPadMs, sr), n)
	start = max(start-msToSamples(startPullBackMs, sr), 0)
	if start >= end {
		return x
	}

	out := make([]float32, end-start)
	copy(out, x[start:end])
	applyFades(out, msToSamples(fadeInMs, sr), msToSamples(fadeOutMs, sr))
	return out
}

// applyFades 线性淡入淡出，首尾采样为 0
func applyFades(x []float32, fadeIn, fadeOut int) {
	fadeIn = min(fadeIn, len(x))
	for i := 0; i < fadeIn; i++ {
		x[i] *= float32(i) / float32(fadeIn)
	}
	fadeOut = min(fadeOut, len(x))
	for i := 0; i < fadeOut; i++ {
		x[len(x)-1-i] *= float32(i) / float32(fadeOut)
	}
}

// TrimFixed 去掉开头 head 和结尾 tail 个采样，长度不足时原样返回
func TrimFixed(x []float32, head, tail int) []float32 {
	n := len(x)
	head = min(max(head, 0), n)
	tail = min(max(tail, 0), n-head)
	if n <= head+tail {
		return x
	}
	out := make([]float32, n-head-tail)
	copy(out, x[head:n-tail])
	return out
}

// TrimPolicy 裁剪策略
type TrimPolicy string

const (
	TrimAdaptive   TrimPolicy = "adaptive"
	TrimFixedStrip TrimPolicy = "fixed"
	TrimNone       TrimPolicy = "none"
)

// ParseTrimPolicy 解析裁剪策略，空字符串为 adaptive
func ParseTrimPolicy(s string) (TrimPolicy, error) {
	switch p := TrimPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return TrimAdaptive, nil
	case TrimAdaptive, TrimFixedStrip, TrimNone:
		return p, nil
	default:
		return "", speech.NewError(speech.KindInvalidArgument, "trim "+s, fmt.Errorf("可选值 adaptive, fixed, none"))
	}
}

// ApplyTrim 按策略裁剪
func ApplyTrim(policy TrimPolicy, x []float32, sr int) []float32 {
	switch policy {
	case TrimNone:
		return x
	case TrimFixedStrip:
		return TrimFixed(x, FixedTrimHead, FixedTrimTail)
	default:
		return Trim(x, sr, DefaultTrimOptions())
	}
}
