// Package tflite runs TensorFlow Lite detection models, optionally on a Coral
// EdgeTPU.
package tflite

import (
	"os"

	tfl "github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/models"
	"github.com/M-Samuel/security-camera/internal/service/ai"
)

// Backend owns one interpreter. It is not safe for concurrent use.
type Backend struct {
	model       *tfl.Model
	options     *tfl.InterpreterOptions
	interpreter *tfl.Interpreter
	delegate    delegates.Delegater
	labels      ai.Labels
	logger      *logger.Logger

	inputWidth  int
	inputHeight int
	inputType   tfl.TensorType
}

// Open loads the model and allocates tensors. All failures wrap
// ai.ErrModelLoad.
func Open(opts ai.Options, labels ai.Labels, log *logger.Logger) (*Backend, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, errors.Wrapf(ai.ErrModelLoad, "model %s: %v", opts.ModelPath, err)
	}

	b := &Backend{labels: labels, logger: log}
	b.model = tfl.NewModelFromFile(opts.ModelPath)
	if b.model == nil {
		return nil, errors.Wrapf(ai.ErrModelLoad, "cannot parse %s", opts.ModelPath)
	}

	b.options = tfl.NewInterpreterOptions()
	if b.options == nil {
		b.Close()
		return nil, errors.Wrap(ai.ErrModelLoad, "interpreter options failed to be created")
	}
	b.options.SetNumThread(opts.NumThreads)
	b.options.SetErrorReporter(func(msg string, _ interface{}) {
		log.Warning("tflite: %s", msg)
	}, nil)

	if opts.UseAccelerator {
		devices, err := edgetpu.DeviceList()
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(ai.ErrModelLoad, "listing edgetpu devices: %v", err)
		}
		if len(devices) == 0 {
			b.Close()
			return nil, errors.Wrap(ai.ErrModelLoad, "no edgetpu device found")
		}
		b.delegate = edgetpu.New(devices[0])
		if b.delegate == nil {
			b.Close()
			return nil, errors.Wrap(ai.ErrModelLoad, "cannot open edgetpu delegate")
		}
		b.options.AddDelegate(b.delegate)
		log.Info("Using edgetpu device %s", devices[0].Path)
	}

	b.interpreter = tfl.NewInterpreter(b.model, b.options)
	if b.interpreter == nil {
		b.Close()
		return nil, errors.Wrap(ai.ErrModelLoad, "failed to create interpreter")
	}
	if status := b.interpreter.AllocateTensors(); status != tfl.OK {
		b.Close()
		return nil, errors.Wrap(ai.ErrModelLoad, "failed to allocate tensors")
	}

	input := b.interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() != 4 || input.Dim(3) != 3 {
		b.Close()
		return nil, errors.Wrap(ai.ErrModelLoad, "model input is not an RGB image tensor")
	}
	b.inputHeight, b.inputWidth, b.inputType = input.Dim(1), input.Dim(2), input.Type()
	if b.inputType != tfl.UInt8 && b.inputType != tfl.Float32 {
		b.Close()
		return nil, errors.Wrapf(ai.ErrModelLoad, "unsupported input tensor type %s", b.inputType)
	}
	if n := b.interpreter.GetOutputTensorCount(); n < 4 {
		b.Close()
		return nil, errors.Wrapf(ai.ErrModelLoad, "expected 4 detection outputs, model has %d", n)
	}

	log.Info("Loaded %s: input %dx%d %s, %d threads", opts.ModelPath, b.inputWidth, b.inputHeight, b.inputType, opts.NumThreads)
	return b, nil
}

// Infer resizes the frame to the model input, runs the interpreter once and
// decodes the detection outputs against the source frame size.
func (b *Backend) Infer(frame models.Frame) ([]models.Region, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	resized := resize.Resize(uint(b.inputWidth), uint(b.inputHeight), frame.RGBA(), resize.Bilinear)
	pix := models.FrameFromImage(resized).Pix

	input := b.interpreter.GetInputTensor(0)
	var status tfl.Status
	if b.inputType == tfl.Float32 {
		status = input.CopyFromBuffer(normalize(pix))
	} else {
		status = input.CopyFromBuffer(pix)
	}
	if status != tfl.OK {
		return nil, errors.New("copying to input tensor failed")
	}

	if status := b.interpreter.Invoke(); status != tfl.OK {
		return nil, errors.New("invoke failed")
	}

	out, err := b.readOutputs()
	if err != nil {
		return nil, err
	}
	return ai.DecodePostProcess(out, frame.Width, frame.Height, b.labels), nil
}

func (b *Backend) readOutputs() (ai.PostProcessOutput, error) {
	names := make([]string, 4)
	for i := range names {
		names[i] = b.interpreter.GetOutputTensor(i).Name()
	}
	order := ai.PostProcessTensorOrder(names)

	var values [4][]float32
	for role, index := range order {
		t := b.interpreter.GetOutputTensor(index)
		if t.Type() != tfl.Float32 {
			return ai.PostProcessOutput{}, errors.Errorf("output %d (%s) is %s, want float32", index, t.Name(), t.Type())
		}
		buf := make([]float32, t.ByteSize()/4)
		if len(buf) == 0 {
			continue
		}
		if status := t.CopyToBuffer(buf); status != tfl.OK {
			return ai.PostProcessOutput{}, errors.Errorf("reading output %d failed", index)
		}
		values[role] = buf
	}

	out := ai.PostProcessOutput{
		Boxes:   values[ai.OutputBoxes],
		Classes: values[ai.OutputClasses],
		Scores:  values[ai.OutputScores],
		Count:   len(values[ai.OutputScores]),
	}
	if len(values[ai.OutputCount]) > 0 {
		out.Count = int(values[ai.OutputCount][0])
	}
	return out, nil
}

// normalize maps 8-bit channels onto [-1, 1].
func normalize(pix []byte) []float32 {
	out := make([]float32, len(pix))
	for i, v := range pix {
		out[i] = (float32(v) - 127.5) / 127.5
	}
	return out
}

// Close releases the interpreter and everything it references. Safe to call
// on a partially opened backend.
func (b *Backend) Close() error {
	if b.interpreter != nil {
		b.interpreter.Delete()
		b.interpreter = nil
	}
	if b.delegate != nil {
		b.delegate.Delete()
		b.delegate = nil
	}
	if b.options != nil {
		b.options.Delete()
		b.options = nil
	}
	if b.model != nil {
		b.model.Delete()
		b.model = nil
	}
	return nil
}
