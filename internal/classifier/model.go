package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model is the fitted artifact loaded once at process start: a standard
// scaler followed by a logistic classifier, plus the feature order the
// vector must honor.
type Model struct {
	Version   string    `json:"version"`
	Threshold float64   `json:"threshold"`
	Features  []string  `json:"features"`
	Means     []float64 `json:"means"`
	Stddevs   []float64 `json:"stddevs"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// LoadModel reads and validates the model artifact.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var model Model
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := model.validate(); err != nil {
		return nil, err
	}
	return &model, nil
}

func (m *Model) validate() error {
	n := len(m.Features)
	if n == 0 {
		return fmt.Errorf("model artifact has no features")
	}
	if len(m.Means) != n || len(m.Stddevs) != n || len(m.Weights) != n {
		return fmt.Errorf("model artifact dimensionality mismatch: features=%d means=%d stddevs=%d weights=%d",
			n, len(m.Means), len(m.Stddevs), len(m.Weights))
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("model threshold %f outside (0,1)", m.Threshold)
	}
	return nil
}
