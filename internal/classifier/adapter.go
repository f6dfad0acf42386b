package classifier

import (
	"errors"
	"math"

	"github.com/smallbiznis/botsense/internal/config"
	"go.uber.org/zap"
)

// ErrDegraded reports that no fitted model is available. The orchestrator
// substitutes the neutral default at its call site; the adapter never does.
var ErrDegraded = errors.New("classifier_degraded")

// Score is the classifier decision for one session.
type Score struct {
	IsHuman    bool    `json:"is_human"`
	Confidence float64 `json:"confidence"`
}

// Adapter wraps the fitted model. Inference is stateless and safe for
// concurrent use; the only I/O is the artifact load at construction.
type Adapter struct {
	model    *Model
	degraded bool
}

// New loads the model artifact. A load failure must not crash the service:
// the adapter comes up degraded and every Score call reports ErrDegraded.
func New(cfg config.Config, log *zap.Logger) *Adapter {
	model, err := LoadModel(cfg.Classifier.ModelPath)
	if err != nil {
		log.Warn("classifier model unavailable, starting degraded",
			zap.String("path", cfg.Classifier.ModelPath),
			zap.Error(err),
		)
		return &Adapter{degraded: true}
	}

	log.Info("classifier model loaded",
		zap.String("version", model.Version),
		zap.Int("features", len(model.Features)),
		zap.Float64("threshold", model.Threshold),
	)
	return &Adapter{model: model}
}

// NewWithModel builds an adapter around an already-validated model.
func NewWithModel(model *Model) *Adapter {
	if model == nil {
		return &Adapter{degraded: true}
	}
	return &Adapter{model: model}
}

// Degraded reports whether the adapter is running without a fitted model.
func (a *Adapter) Degraded() bool {
	return a == nil || a.degraded
}

// Score applies the fitted scaler and logistic model to the feature mapping.
// Missing or null features substitute 0 before scaling.
func (a *Adapter) Score(features map[string]float64) (Score, error) {
	if a.Degraded() {
		return Score{}, ErrDegraded
	}

	z := a.model.Intercept
	for i, name := range a.model.Features {
		x := features[name]
		std := a.model.Stddevs[i]
		if std == 0 {
			std = 1
		}
		z += a.model.Weights[i] * ((x - a.model.Means[i]) / std)
	}

	confidence := sigmoid(z)
	return Score{
		IsHuman:    confidence > a.model.Threshold,
		Confidence: confidence,
	}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
