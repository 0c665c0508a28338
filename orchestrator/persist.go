package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibetunes/vibetunes-backend/mood"
)

// DetectionRecord is the on-disk audit entry of one detection.
type DetectionRecord struct {
	RequestID   string              `json:"request_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Models      []string            `json:"models"`
	Results     []mood.ModelResult  `json:"results"`
	Means       *mood.EnsembleMeans `json:"ensemble_means,omitempty"`
	Threshold   int                 `json:"consensus_threshold,omitempty"`
	Detection   *Detection          `json:"detection"`
}

func mkDayDir(outputsRoot string, now time.Time) (string, error) {
	dir := filepath.Join(outputsRoot, now.Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes a DetectionRecord under paths.outputs. It is a no-op when no
// output directory is configured; failures are logged, never returned.
func (p *Pipeline) persist(log logrus.FieldLogger, det *Detection, results []mood.ModelResult) {
	root := p.cfg.Paths.Outputs
	if root == "" {
		return
	}
	now := p.clock.Now()
	rec := DetectionRecord{
		RequestID:   det.RequestID,
		GeneratedAt: now,
		Models:      p.cfg.HuggingFace.Models,
		Results:     results,
		Detection:   det,
	}
	if len(results) > 1 {
		m := p.engine.BiasCorrector().Means(results)
		rec.Means = &m
		rec.Threshold = p.engine.Voter().Threshold(len(results))
	}

	dir, err := mkDayDir(root, now)
	if err != nil {
		log.WithError(err).Error("Failed to create detection record dir")
		return
	}
	path := filepath.Join(dir, det.RequestID+".json")
	if !within(root, path) {
		log.WithField("path", path).Error("Detection record path escapes outputs dir")
		return
	}
	if err := writeJSON(path, rec); err != nil {
		log.WithError(err).Error("Failed to write detection record")
		return
	}
	log.WithField("path", path).Debug("Detection record written")
}
