package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Mode selects the post-processing applied to model logits.
type Mode int

const (
	// ModeSingleLabel normalizes scores across classes (softmax) and
	// returns the argmax. Scores sum to 1.
	ModeSingleLabel Mode = iota
	// ModeMultiLabel scores each class independently (sigmoid) and
	// returns every class above the threshold. Scores do not sum to 1.
	ModeMultiLabel
)

// ParseMode maps the request-supplied type string to a Mode. Anything
// other than "multiclass" selects multi-label, matching the original
// API's behavior for absent or unknown values.
func ParseMode(s string) Mode {
	if s == "multiclass" {
		return ModeSingleLabel
	}
	return ModeMultiLabel
}

func (m Mode) String() string {
	if m == ModeSingleLabel {
		return "multiclass"
	}
	return "multilabel"
}

// ErrModelNotLoaded is returned by Classify when the runtime reported no
// loaded model. Callers are expected to check Loaded() before attempting
// inference; this error covers the race where the runtime degrades between
// the check and the call.
var ErrModelNotLoaded = errors.New("model is not loaded")

// Outcome is the adapter's classification result. Labels and Scores are
// parallel and sorted by score descending; single-label mode yields
// exactly one pair.
type Outcome struct {
	Labels  []string
	Scores  []float64
	ModelID string
}

// Adapter wraps the model runtime and owns probability calibration. It is
// constructed once at startup and shared across requests; the loaded flag
// is the only mutable state and is guarded by a RWMutex. Inference calls
// themselves may run concurrently, the runtime is a stateless HTTP service.
type Adapter struct {
	runtime   *RuntimeClient
	modelID   string
	threshold float64
	logger    *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewAdapter creates an adapter over the given runtime client. Call Probe
// before serving traffic to establish the loaded state.
func NewAdapter(runtime *RuntimeClient, modelID string, threshold float64, logger *zap.Logger) *Adapter {
	return &Adapter{
		runtime:   runtime,
		modelID:   modelID,
		threshold: threshold,
		logger:    logger,
	}
}

// Probe queries the runtime's health endpoint and records whether the
// model is loaded. Returns the loaded state.
func (a *Adapter) Probe(ctx context.Context) bool {
	health, err := a.runtime.HealthCheck(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.loaded = false
		a.logger.Warn("Model runtime health check failed", zap.Error(err))
		return false
	}

	a.loaded = health.ModelLoaded
	if !health.ModelLoaded {
		a.logger.Warn("Model runtime is up but reports no loaded model",
			zap.String("status", health.Status),
			zap.String("message", health.Message))
	}
	return a.loaded
}

// Loaded reports the last known model state without touching the runtime.
func (a *Adapter) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

// ModelID returns the identifier of the model this adapter fronts.
func (a *Adapter) ModelID() string {
	return a.modelID
}

// Classify runs one inference call and post-processes the logits according
// to mode. Input is tokenized and truncated runtime-side; truncation is
// silent, not an error.
func (a *Adapter) Classify(ctx context.Context, text string, mode Mode) (*Outcome, error) {
	if !a.Loaded() {
		return nil, ErrModelNotLoaded
	}

	resp, err := a.runtime.Logits(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}
	if len(resp.Logits) == 0 || len(resp.Logits) != len(resp.Labels) {
		return nil, fmt.Errorf("runtime returned %d logits for %d labels", len(resp.Logits), len(resp.Labels))
	}

	modelID := resp.ModelID
	if modelID == "" {
		modelID = a.modelID
	}

	if mode == ModeSingleLabel {
		return singleLabelOutcome(resp.Logits, resp.Labels, modelID), nil
	}
	return a.multiLabelOutcome(resp.Logits, resp.Labels, modelID), nil
}

// singleLabelOutcome applies softmax and takes the argmax.
func singleLabelOutcome(logits []float64, labels []string, modelID string) *Outcome {
	probs := softmax(logits)

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return &Outcome{
		Labels:  []string{labels[best]},
		Scores:  []float64{probs[best]},
		ModelID: modelID,
	}
}

// multiLabelOutcome applies an independent sigmoid per class and keeps
// everything above the threshold, sorted by score descending. When no
// class clears the threshold the single best class is returned instead, so
// a completed analysis always carries at least one label.
func (a *Adapter) multiLabelOutcome(logits []float64, labels []string, modelID string) *Outcome {
	type scored struct {
		label string
		score float64
	}

	best := scored{label: labels[0], score: sigmoid(logits[0])}
	var kept []scored
	for i, logit := range logits {
		s := scored{label: labels[i], score: sigmoid(logit)}
		if s.score > best.score {
			best = s
		}
		if s.score > a.threshold {
			kept = append(kept, s)
		}
	}

	if len(kept) == 0 {
		a.logger.Debug("No class above threshold, falling back to argmax",
			zap.String("label", best.label), zap.Float64("score", best.score))
		kept = []scored{best}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := &Outcome{
		Labels:  make([]string, len(kept)),
		Scores:  make([]float64, len(kept)),
		ModelID: modelID,
	}
	for i, s := range kept {
		out.Labels[i] = s.label
		out.Scores[i] = s.score
	}
	return out
}

// softmax normalizes logits into a distribution summing to 1. Shifted by
// the max logit for numerical stability.
func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
