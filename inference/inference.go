package inference

import (
	"fmt"
	"math"
	"path"

	tf "github.com/tensorflow/tensorflow/tensorflow/go"
	"go.uber.org/zap"
)

// Config holds classifier construction settings.
type Config struct {
	// ModelPath is the directory holding the saved model, its config.yaml
	// and its labels file.
	ModelPath string
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier wraps a saved model loaded once at startup. The model and the
// label table are immutable afterwards; Session.Run is re-entrant, so one
// Classifier serves concurrent requests without locking.
type Classifier struct {
	cfg     modelConfig
	tfModel *tf.SavedModel
	labels  []string
	logger  *zap.Logger
}

// New loads the saved model, its configuration and its label table. Any
// failure here means the process cannot serve.
func New(c Config, logger *zap.Logger) (*Classifier, error) {
	cfg, err := loadConfig(c.ModelPath)
	if err != nil {
		return nil, err
	}

	tfModel, err := tf.LoadSavedModel(c.ModelPath, cfg.Tags, nil)
	if err != nil {
		return nil, fmt.Errorf("load saved model: %w", err)
	}

	labels, err := loadLabels(path.Join(c.ModelPath, cfg.LabelsFile))
	if err != nil {
		tfModel.Session.Close()
		return nil, err
	}

	clf := &Classifier{
		cfg:     cfg,
		tfModel: tfModel,
		labels:  labels,
		logger:  logger.Named("inference"),
	}

	if err := clf.validateOperations(); err != nil {
		tfModel.Session.Close()
		return nil, err
	}

	clf.logger.Info("model loaded",
		zap.String("model", cfg.Name),
		zap.Int("imageSize", cfg.ImageSize),
		zap.Int("labels", len(labels)))

	return clf, nil
}

func (c *Classifier) validateOperations() error {
	in := c.tfModel.Graph.Operation(c.cfg.InputOperationName)
	if in == nil {
		return fmt.Errorf("no such input operation: %s", c.cfg.InputOperationName)
	}
	out := c.tfModel.Graph.Operation(c.cfg.OutputOperationName)
	if out == nil {
		return fmt.Errorf("no such output operation: %s", c.cfg.OutputOperationName)
	}

	// Fail fast on a label table that cannot match the output layer. The
	// class dimension may stay unknown until run time, in which case the
	// per-pass length check in classify still applies.
	shape := out.Output(0).Shape()
	if n := shape.NumDimensions(); n > 0 {
		if dim := shape.Size(n - 1); dim > 0 && int(dim) != len(c.labels) {
			return fmt.Errorf(
				"label table has %d entries, model outputs %d classes",
				len(c.labels), dim)
		}
	}

	return nil
}

// Predict decodes one uploaded image and runs a single forward pass.
func (c *Classifier) Predict(imageBytes []byte) (Prediction, error) {
	img, err := decodeImage(imageBytes)
	if err != nil {
		return Prediction{}, err
	}

	input, err := tf.NewTensor(pixels(img, c.cfg.ImageSize))
	if err != nil {
		return Prediction{}, fmt.Errorf("build input tensor: %w", err)
	}

	results, err := c.tfModel.Session.Run(
		map[tf.Output]*tf.Tensor{
			c.tfModel.Graph.Operation(c.cfg.InputOperationName).Output(0): input,
		},
		[]tf.Output{
			c.tfModel.Graph.Operation(c.cfg.OutputOperationName).Output(0),
		},
		nil,
	)
	if err != nil {
		return Prediction{}, fmt.Errorf("forward pass: %w", err)
	}

	probs, ok := results[0].Value().([][]float32)
	if !ok || len(probs) == 0 {
		return Prediction{}, fmt.Errorf("unexpected output tensor shape")
	}

	return c.classify(probs[0])
}

func (c *Classifier) classify(probs []float32) (Prediction, error) {
	if len(probs) != len(c.labels) {
		return Prediction{}, fmt.Errorf(
			"the number of labels (%d) and predicted classes (%d) does not match",
			len(c.labels), len(probs))
	}

	idx := argmax(probs)
	return Prediction{
		Label:      c.labels[idx],
		Confidence: roundConfidence(float64(probs[idx])),
	}, nil
}

// argmax returns the index of the largest value, preferring the lowest index
// on ties.
func argmax(probs []float32) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

func roundConfidence(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Info reports metadata about the loaded model.
func (c *Classifier) Info() map[string]interface{} {
	labels := make([]string, len(c.labels))
	copy(labels, c.labels)

	return map[string]interface{}{
		"model":          c.cfg.Name,
		"imageSize":      c.cfg.ImageSize,
		"numberOfLabels": len(c.labels),
		"labels":         labels,
		"description":    c.cfg.Description,
	}
}

// Name returns the model name declared in its configuration.
func (c *Classifier) Name() string {
	return c.cfg.Name
}

// LabelCount returns the size of the label table.
func (c *Classifier) LabelCount() int {
	return len(c.labels)
}

// Close releases the underlying session.
func (c *Classifier) Close() {
	if c.tfModel == nil {
		return
	}
	if err := c.tfModel.Session.Close(); err != nil {
		c.logger.Warn("failed to close session", zap.Error(err))
	}
}
