// Package scheduler implements the deterministic SM-2 variant used to decide
// when a card must next be shown. All transitions are pure: callers persist
// the result and stamp LastReview themselves.
package scheduler

import (
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

const (
	minutesPerDay = 24 * 60
	dayMillis     = 24 * 60 * 60 * 1000
)

// Config holds the scheduling policy parameters.
type Config struct {
	LearningSteps      []int   // learning-phase step ladder, minutes
	GraduatingInterval float64 // interval on graduating via Good, days
	EasyInterval       float64 // interval on graduating via Easy, days
	HardRelearnStep    int     // relearn step after Hard in review phase, minutes
	StartingEase       float64
	MinimumEase        float64
}

// DefaultConfig returns the default policy: steps of 1/10/30 minutes,
// graduation at 2 days, easy graduation at 5 days, ease 2.5 floored at 1.3.
func DefaultConfig() *Config {
	return &Config{
		LearningSteps:      []int{1, 10, 30},
		GraduatingInterval: 2,
		EasyInterval:       5,
		HardRelearnStep:    10,
		StartingEase:       2.5,
		MinimumEase:        1.3,
	}
}

// Result is the scheduling state produced by grading a card.
type Result struct {
	Ease        float64
	Interval    float64 // days, fractional below one day
	Repetitions int
	NextReview  int64
	State       domain.CardState
}

// NextReview computes the new scheduling state for a review graded with
// rating, relative to the current wall clock. Out-of-range ratings are a
// contract violation and fall through the learning-phase handling.
func (c *Config) NextReview(review domain.CardReview, rating domain.Rating) Result {
	return c.NextReviewAt(review, rating, time.Now().UnixMilli())
}

// NextReviewAt is NextReview with an explicit clock, in Unix milliseconds.
func (c *Config) NextReviewAt(review domain.CardReview, rating domain.Rating, now int64) Result {
	// Again resets progress regardless of state: back to a one-minute step.
	if rating == domain.Again {
		state := domain.StateRelearning
		if review.State == domain.StateNew {
			state = domain.StateLearning
		}
		return Result{
			Ease:        review.Ease,
			Interval:    1.0 / minutesPerDay,
			Repetitions: 0,
			NextReview:  now + time.Minute.Milliseconds(),
			State:       state,
		}
	}

	if review.State == domain.StateReview {
		return c.reviewPhase(review, rating, now)
	}
	return c.learningPhase(review, rating, now)
}

// learningPhase handles new, learning, and relearning cards. Repetitions is
// the index into the learning-step ladder.
func (c *Config) learningPhase(review domain.CardReview, rating domain.Rating, now int64) Result {
	if rating == domain.Easy {
		// Immediate graduation.
		return Result{
			Ease:        review.Ease,
			Interval:    c.EasyInterval,
			Repetitions: 0,
			NextReview:  now + int64(c.EasyInterval*dayMillis),
			State:       domain.StateReview,
		}
	}

	lastStep := len(c.LearningSteps) - 1

	if rating == domain.Good {
		if review.Repetitions >= lastStep {
			return Result{
				Ease:        review.Ease,
				Interval:    c.GraduatingInterval,
				Repetitions: 0,
				NextReview:  now + int64(c.GraduatingInterval*dayMillis),
				State:       domain.StateReview,
			}
		}
		nextStep := c.LearningSteps[review.Repetitions+1]
		return Result{
			Ease:        review.Ease,
			Interval:    float64(nextStep) / minutesPerDay,
			Repetitions: review.Repetitions + 1,
			NextReview:  now + int64(nextStep)*time.Minute.Milliseconds(),
			State:       learningState(review.State),
		}
	}

	// Hard repeats the current step without advancing.
	step := c.LearningSteps[min(review.Repetitions, lastStep)]
	return Result{
		Ease:        review.Ease,
		Interval:    float64(step) / minutesPerDay,
		Repetitions: review.Repetitions,
		NextReview:  now + int64(step)*time.Minute.Milliseconds(),
		State:       learningState(review.State),
	}
}

// reviewPhase handles graduated cards.
func (c *Config) reviewPhase(review domain.CardReview, rating domain.Rating, now int64) Result {
	if rating == domain.Hard {
		// Lapse back to a short relearning step and penalize ease.
		return Result{
			Ease:        math.Max(c.MinimumEase, review.Ease-0.15),
			Interval:    float64(c.HardRelearnStep) / minutesPerDay,
			Repetitions: 0,
			NextReview:  now + int64(c.HardRelearnStep)*time.Minute.Milliseconds(),
			State:       domain.StateRelearning,
		}
	}

	ease := review.Ease
	var interval float64
	switch rating {
	case domain.Good:
		interval = math.Round(review.Interval * ease)
	case domain.Easy:
		ease = review.Ease + 0.15
		interval = math.Round(review.Interval * ease * 1.3)
	}
	if interval < 1 {
		interval = 1
	}

	return Result{
		Ease:        ease,
		Interval:    interval,
		Repetitions: review.Repetitions + 1,
		NextReview:  now + int64(interval)*dayMillis,
		State:       domain.StateReview,
	}
}

func learningState(prev domain.CardState) domain.CardState {
	if prev == domain.StateNew {
		return domain.StateLearning
	}
	return prev
}

// NewReview creates the lazy initial scheduling state for a card entering its
// first study session: due immediately, starting ease, zero interval.
func (c *Config) NewReview(cardID string) domain.CardReview {
	return c.NewReviewAt(cardID, time.Now().UnixMilli())
}

// NewReviewAt is NewReview with an explicit clock.
func (c *Config) NewReviewAt(cardID string, now int64) domain.CardReview {
	return domain.CardReview{
		ID:          cardID,
		CardID:      cardID,
		Ease:        c.StartingEase,
		Interval:    0,
		Repetitions: 0,
		NextReview:  now,
		LastReview:  now,
		State:       domain.StateNew,
	}
}

// IsDue reports whether the review's next scheduled time has passed.
func IsDue(review domain.CardReview) bool {
	return review.NextReview <= time.Now().UnixMilli()
}
