package eval

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"moneyradar/pkg/logging"
)

// DefaultTestSetPath is where the labelled test set lives unless a run
// overrides it.
const DefaultTestSetPath = "data/eval/test_set.jsonl"

// Regression thresholds. Every evaluated label must meet both.
const (
	MinF1        = 0.5
	MinPrecision = 0.4
)

// labelNames are the signal flags evaluated against ground truth, in the
// column order of the signals table.
var labelNames = []string{"is_question", "asks_recommendation", "mentions_cost", "mentions_platform"}

// LabelledItem is one manually labelled post or comment. Labels maps a
// signal flag name to its ground-truth value; a flag absent from the map
// counts as false.
type LabelledItem struct {
	ContentID   string          `json:"content_id"`
	ContentType string          `json:"content_type"`
	Text        string          `json:"text"`
	Labels      map[string]bool `json:"labels"`
	Notes       string          `json:"notes,omitempty"`
}

// Metrics holds the confusion counts for one label
type Metrics struct {
	Label          string `json:"label"`
	TruePositives  int    `json:"true_positives"`
	FalsePositives int    `json:"false_positives"`
	FalseNegatives int    `json:"false_negatives"`
	TrueNegatives  int    `json:"true_negatives"`
}

// Precision returns TP / (TP + FP), zero when undefined
func (m Metrics) Precision() float64 {
	denom := m.TruePositives + m.FalsePositives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

// Recall returns TP / (TP + FN), zero when undefined
func (m Metrics) Recall() float64 {
	denom := m.TruePositives + m.FalseNegatives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

// F1 returns the harmonic mean of precision and recall, zero when undefined
func (m Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy returns the share of correct predictions, zero on an empty set
func (m Metrics) Accuracy() float64 {
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total == 0 {
		return 0
	}
	return float64(m.TruePositives+m.TrueNegatives) / float64(total)
}

// MarshalJSON serializes the derived rates alongside the raw counts
func (m Metrics) MarshalJSON() ([]byte, error) {
	type counts Metrics
	return json.Marshal(struct {
		counts
		Precision float64 `json:"precision"`
		Recall    float64 `json:"recall"`
		F1        float64 `json:"f1"`
		Accuracy  float64 `json:"accuracy"`
	}{counts(m), m.Precision(), m.Recall(), m.F1(), m.Accuracy()})
}

// Report is the outcome of one evaluation run
type Report struct {
	TestSetSize    int                 `json:"test_set_size"`
	MetricsByLabel map[string]*Metrics `json:"metrics_by_label"`
	Timestamp      string              `json:"timestamp"`
}

// Passed reports whether every label meets the regression thresholds
func (r Report) Passed() bool {
	for _, m := range r.MetricsByLabel {
		if m.F1() < MinF1 || m.Precision() < MinPrecision {
			return false
		}
	}
	return true
}

// LoadTestSet reads a JSONL test set, one labelled item per line. Blank
// lines are skipped.
func LoadTestSet(path string) ([]LabelledItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open test set %s: %w", path, err)
	}
	defer f.Close()

	var items []LabelledItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var item LabelledItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("parse test set line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read test set %s: %w", path, err)
	}
	return items, nil
}

// Evaluator compares stored signal predictions against a labelled test
// set and computes per-label precision, recall, F1 and accuracy.
type Evaluator struct {
	db     *sql.DB
	logger logging.Logger
}

// NewEvaluator creates an evaluator
func NewEvaluator(db *sql.DB, logger logging.Logger) *Evaluator {
	return &Evaluator{db: db, logger: logger}
}

// Evaluate scores the stored predictions for each labelled item. An item
// without a signals row counts as all-false predictions, so unscored
// content shows up as false negatives rather than being silently skipped.
func (e *Evaluator) Evaluate(ctx context.Context, items []LabelledItem) (Report, error) {
	metrics := make(map[string]*Metrics, len(labelNames))
	for _, name := range labelNames {
		metrics[name] = &Metrics{Label: name}
	}

	for _, item := range items {
		var isQuestion, asksRecommendation, mentionsCost, mentionsPlatform bool
		err := e.db.QueryRowContext(ctx, `
			SELECT is_question, asks_recommendation, mentions_cost, mentions_platform
			FROM signals
			WHERE content_id = $1 AND content_type = $2`,
			item.ContentID, item.ContentType,
		).Scan(&isQuestion, &asksRecommendation, &mentionsCost, &mentionsPlatform)
		if err != nil && err != sql.ErrNoRows {
			return Report{}, fmt.Errorf("load signal %s/%s: %w", item.ContentType, item.ContentID, err)
		}

		predicted := map[string]bool{
			"is_question":         isQuestion,
			"asks_recommendation": asksRecommendation,
			"mentions_cost":       mentionsCost,
			"mentions_platform":   mentionsPlatform,
		}
		for _, name := range labelNames {
			truth := item.Labels[name]
			m := metrics[name]
			switch {
			case truth && predicted[name]:
				m.TruePositives++
			case truth && !predicted[name]:
				m.FalseNegatives++
			case !truth && predicted[name]:
				m.FalsePositives++
			default:
				m.TrueNegatives++
			}
		}
	}

	return Report{
		TestSetSize:    len(items),
		MetricsByLabel: metrics,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// RunRegression loads the test set at path (DefaultTestSetPath when
// empty), evaluates it, and checks every label against the minimum
// thresholds. A missing test set passes with an empty report so deploys
// without labelled data are not blocked.
func (e *Evaluator) RunRegression(ctx context.Context, path string) (Report, bool, error) {
	if path == "" {
		path = DefaultTestSetPath
	}

	items, err := LoadTestSet(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.WithField("path", path).Warn("No labelled test set found, skipping evaluation")
			return Report{MetricsByLabel: map[string]*Metrics{}}, true, nil
		}
		return Report{}, false, err
	}

	report, err := e.Evaluate(ctx, items)
	if err != nil {
		return Report{}, false, err
	}

	passed := report.Passed()
	for _, name := range labelNames {
		m := report.MetricsByLabel[name]
		e.logger.WithFields(logging.Fields{
			"label":     name,
			"precision": m.Precision(),
			"recall":    m.Recall(),
			"f1":        m.F1(),
			"accuracy":  m.Accuracy(),
		}).Info("Evaluation metrics")
	}
	if !passed {
		e.logger.Warn("Evaluation below regression thresholds")
	}
	return report, passed, nil
}
