package service

import (
	"fmt"
	"math"
)

// MaxRawScorePossible is the ceiling of summed per-question AI scores for a
// full test: each question is scored 0-9 and a test carries at most 40
// scorable questions.
const MaxRawScorePossible float64 = 360.0

const MaxBandScore float64 = 9.0

type ScoreConverterService interface {
	ConvertToBandScore(rawScore float64, scoredQuestions int) (float64, error)
}

type scoreConverterServiceImpl struct{}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{}
}

// ConvertToBandScore maps the total raw score onto the 0-9 band scale,
// normalized by how many questions were actually scored and rounded to the
// nearest half band the way reported IELTS results are.
func (s *scoreConverterServiceImpl) ConvertToBandScore(rawScore float64, scoredQuestions int) (float64, error) {
	if rawScore < 0 || rawScore > MaxRawScorePossible {
		return 0, fmt.Errorf("raw score %.2f is out of valid range (0-%.2f)", rawScore, MaxRawScorePossible)
	}
	if scoredQuestions <= 0 {
		return 0, fmt.Errorf("cannot convert a score over %d scored questions", scoredQuestions)
	}

	band := rawScore / float64(scoredQuestions)
	if band > MaxBandScore {
		band = MaxBandScore
	}
	if band < 0 {
		band = 0
	}

	// Bands are reported in half-band steps: 6.25 -> 6.5, 6.1 -> 6.0.
	return math.Round(band*2) / 2, nil
}
