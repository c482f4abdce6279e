package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ternarybob/evharness/internal/models"
	"gopkg.in/yaml.v3"
)

// Load reads, decodes and validates an Evaluation Profile file
func Load(path string) (*models.EvaluationProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes and validates an Evaluation Profile document. Unknown keys are
// rejected.
func Parse(data []byte) (*models.EvaluationProfile, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var p models.EvaluationProfile
	if err := decoder.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{Violations: []string{"Configuration Error: profile document is empty"}}
		}
		return nil, &ValidationError{Violations: []string{fmt.Sprintf("Configuration Error: invalid YAML: %v", err)}}
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
