package inference

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const configFileName = "config.yaml"

// modelConfig mirrors the config.yaml stored next to the saved model.
type modelConfig struct {
	Name                string   `yaml:"name"`
	Tags                []string `yaml:"tags"`
	ImageSize           int      `yaml:"imageSize"`
	InputOperationName  string   `yaml:"inputOperationName"`
	OutputOperationName string   `yaml:"outputOperationName"`
	LabelsFile          string   `yaml:"labelsFile"`
	Description         string   `yaml:"description"`
}

func loadConfig(modelPath string) (modelConfig, error) {
	var cfg modelConfig

	raw, err := os.ReadFile(path.Join(modelPath, configFileName))
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configFileName, err)
	}

	if cfg.ImageSize <= 0 {
		return cfg, fmt.Errorf("invalid imageSize: %d", cfg.ImageSize)
	}
	if cfg.InputOperationName == "" || cfg.OutputOperationName == "" {
		return cfg, errors.New("input and output operation names are required")
	}
	if len(cfg.Tags) == 0 {
		cfg.Tags = []string{"serve"}
	}
	if cfg.LabelsFile == "" {
		cfg.LabelsFile = "labels.txt"
	}

	return cfg, nil
}

// loadLabels reads the label table, one label per line. Line i names the
// class behind output neuron i.
func loadLabels(labelsPath string) ([]string, error) {
	fp, err := os.Open(labelsPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	var labels []string
	scanner := bufio.NewScanner(fp)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("empty label table: %s", labelsPath)
	}

	return labels, nil
}
