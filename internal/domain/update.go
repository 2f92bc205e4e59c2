package domain

import (
	"fmt"
	"time"
)

// ContentUpdate is a partial mutation of a content request. Nil fields are
// left untouched.
type ContentUpdate struct {
	Status             *Status
	ProgressPercentage *int
	CurrentStep        *string

	GeneratedContent *Script
	GeneratedPicture *string
	GeneratedVoice   *string
	GeneratedMusic   *string
	GeneratedVideo   *string

	ErrorMessage *string
	ErrorStep    *string
}

// Empty reports whether the update carries no field.
func (u ContentUpdate) Empty() bool {
	return u.Status == nil && u.ProgressPercentage == nil && u.CurrentStep == nil &&
		u.GeneratedContent == nil && u.GeneratedPicture == nil && u.GeneratedVoice == nil &&
		u.GeneratedMusic == nil && u.GeneratedVideo == nil &&
		u.ErrorMessage == nil && u.ErrorStep == nil
}

// Apply mutates rec in place. Records in a terminal state are frozen,
// progress never moves backward and stays within 0..100, error fields are
// only accepted together with the error status, and completion pins
// progress to 100.
func (u ContentUpdate) Apply(rec *ContentRequest, now time.Time) error {
	if rec.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalState, rec.ID, rec.Status)
	}

	next := rec.Status
	if u.Status != nil {
		if !u.Status.Valid() {
			return fmt.Errorf("unknown status %q", *u.Status)
		}
		next = *u.Status
	}

	progress := rec.ProgressPercentage
	if u.ProgressPercentage != nil {
		progress = *u.ProgressPercentage
		if progress < rec.ProgressPercentage {
			return fmt.Errorf("%w: %d -> %d", ErrProgressRegression, rec.ProgressPercentage, progress)
		}
		if progress > 100 {
			return fmt.Errorf("%w: %d exceeds 100", ErrProgressRegression, progress)
		}
	}
	if next == StatusCompleted {
		progress = 100
	}

	if (u.ErrorMessage != nil || u.ErrorStep != nil) && next != StatusError {
		return fmt.Errorf("error fields require status %s", StatusError)
	}

	rec.Status = next
	rec.ProgressPercentage = progress
	if u.CurrentStep != nil {
		rec.CurrentStep = cloneString(u.CurrentStep)
	}
	if u.GeneratedContent != nil {
		rec.GeneratedContent = u.GeneratedContent.Clone()
	}
	setString(&rec.GeneratedPicture, u.GeneratedPicture)
	setString(&rec.GeneratedVoice, u.GeneratedVoice)
	setString(&rec.GeneratedMusic, u.GeneratedMusic)
	setString(&rec.GeneratedVideo, u.GeneratedVideo)
	setString(&rec.ErrorMessage, u.ErrorMessage)
	setString(&rec.ErrorStep, u.ErrorStep)
	rec.UpdatedAt = now
	return nil
}

func setString(dst **string, v *string) {
	if v != nil {
		*dst = cloneString(v)
	}
}
