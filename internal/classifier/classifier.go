package classifier

import (
	"context"
	"fmt"

	"github.com/nlpodyssey/cybertron/pkg/tasks"
	"github.com/nlpodyssey/cybertron/pkg/tasks/zeroshotclassifier"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Classifier scores a message for toxicity. Toxic means the model's score
// strictly exceeds the threshold; exactly 0.5 is not toxic.
type Classifier interface {
	IsToxic(ctx context.Context, text string) (bool, error)
}

const (
	toxicLabel     = "toxic"
	neutralLabel   = "neutral"
	toxicThreshold = 0.5
)

type Toxicity struct {
	model  zeroshotclassifier.Interface
	params zeroshotclassifier.Parameters
	logger *log.Entry
}

func NewToxicity(modelsDir, modelName string) (*Toxicity, error) {
	m, err := tasks.Load[zeroshotclassifier.Interface](&tasks.Config{
		ModelsDir:           modelsDir,
		ModelName:           modelName,
		DownloadPolicy:      tasks.DownloadMissing,
		ConversionPolicy:    tasks.ConvertMissing,
		ConversionPrecision: tasks.F32,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cant load classification model")
	}
	return &Toxicity{
		model: m,
		params: zeroshotclassifier.Parameters{
			CandidateLabels:    []string{toxicLabel, neutralLabel},
			HypothesisTemplate: "This message is {}.",
			MultiLabel:         false,
		},
		logger: log.WithField("object", "Toxicity"),
	}, nil
}

func (c *Toxicity) IsToxic(ctx context.Context, text string) (bool, error) {
	result, err := c.model.Classify(ctx, text, c.params)
	if err != nil {
		return false, errors.Wrap(err, "classify")
	}

	var score float64
	for i := range result.Labels {
		if result.Labels[i] == toxicLabel {
			score = result.Scores[i]
			break
		}
	}
	c.logger.WithFields(log.Fields{
		"score": fmt.Sprintf("%.4f", score),
		"text":  text,
	}).Info("toxicity prediction")

	return score > toxicThreshold, nil
}
