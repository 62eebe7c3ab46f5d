package kittentts

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/voice"
)

// Runner 执行一次模型推理
type Runner interface {
	Run(inputIDs [][]int64, style []float32, speed float32) ([]float32, error)
	Destroy() error
}

// Inferencer 串行化访问推理会话
//
// 会话本身不保证线程安全，吞吐量取决于会话数量而不是调用方数量
type Inferencer struct {
	mu     sync.Mutex
	runner Runner
	name   string
}

// NewInferencer 包装 Runner，name 用于错误信息
func NewInferencer(runner Runner, name string) *Inferencer {
	return &Inferencer{runner: runner, name: name}
}

// Infer 校验输入后执行推理，返回按行展开的波形
func (in *Inferencer) Infer(inputIDs [][]int64, style []float32, speed float32) ([]float32, error) {
	if in == nil || in.runner == nil {
		return nil, speech.NewError(speech.KindInference, "session", errors.New("推理会话未初始化"))
	}
	if err := validateBatch(inputIDs, style); err != nil {
		return nil, speech.NewError(speech.KindInference, in.name, err)
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	out, err := in.runner.Run(inputIDs, style, speed)
	if err != nil {
		return nil, speech.NewError(speech.KindInference, in.name, err)
	}
	return out, nil
}

// Destroy 释放会话
func (in *Inferencer) Destroy() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.runner == nil {
		return nil
	}
	err := in.runner.Destroy()
	in.runner = nil
	return err
}

func validateBatch(inputIDs [][]int64, style []float32) error {
	if len(inputIDs) == 0 || len(inputIDs[0]) == 0 {
		return errors.New("input_ids 为空")
	}
	for i, row := range inputIDs {
		if len(row) != len(inputIDs[0]) {
			return fmt.Errorf("input_ids 第 %d 行长度 %d 与第 0 行 %d 不一致", i, len(row), len(inputIDs[0]))
		}
	}
	if len(style) != voice.StyleDim {
		return fmt.Errorf("style 维度 %d，期望 %d", len(style), voice.StyleDim)
	}
	return nil
}

// ortRunner 基于 onnxruntime 的 Runner
type ortRunner struct {
	session *ort.DynamicAdvancedSession
}

func newOrtRunner(modelPath string, opts *ort.SessionOptions) (*ortRunner, error) {
	// 输出名以模型声明为准
	outputName := "waveform"
	if _, outputs, err := ort.GetInputOutputInfo(modelPath); err == nil && len(outputs) > 0 {
		outputName = outputs[0].Name
	}

	inputNames := []string{"input_ids", "style", "speed"}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}
	return &ortRunner{session: session}, nil
}

func (r *ortRunner) Run(inputIDs [][]int64, style []float32, speed float32) ([]float32, error) {
	batch, seqLength := int64(len(inputIDs)), int64(len(inputIDs[0]))
	flat := make([]int64, 0, batch*seqLength)
	for _, row := range inputIDs {
		flat = append(flat, row...)
	}

	// input_ids [B, T]
	tIDs, err := ort.NewTensor(ort.NewShape(batch, seqLength), flat)
	if err != nil {
		return nil, fmt.Errorf("创建 input_ids tensor 失败: %w", err)
	}
	defer tIDs.Destroy()
	// style [1, 256]
	tStyle, err := ort.NewTensor(ort.NewShape(1, int64(len(style))), append([]float32(nil), style...))
	if err != nil {
		return nil, fmt.Errorf("创建 style tensor 失败: %w", err)
	}
	defer tStyle.Destroy()
	// speed [1]
	tSpeed, err := ort.NewTensor(ort.NewShape(1), []float32{speed})
	if err != nil {
		return nil, fmt.Errorf("创建 speed tensor 失败: %w", err)
	}
	defer tSpeed.Destroy()

	inputs := []ort.Value{tIDs, tStyle, tSpeed}
	outputs := make([]ort.Value, 1)
	if err := r.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("推理运行失败: %w", err)
	}
	defer outputs[0].Destroy()

	resultTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("推理输出类型断言失败，期望 *Tensor[float32]")
	}
	rawData := resultTensor.GetData()
	result := make([]float32, len(rawData))
	copy(result, rawData)
	return result, nil
}

func (r *ortRunner) Destroy() error {
	if r.session != nil {
		err := r.session.Destroy()
		r.session = nil
		return err
	}
	return nil
}
