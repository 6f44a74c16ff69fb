package project

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Validate validates the EpicInput using the validator.
func (in EpicInput) Validate() error { return check(in) }

// Validate validates the EpicPatch using the validator.
func (p EpicPatch) Validate() error { return check(p) }

// Validate validates the StoryInput using the validator.
func (in StoryInput) Validate() error { return check(in) }

// Validate validates the StoryPatch using the validator.
func (p StoryPatch) Validate() error { return check(p) }

// Validate rejects events with an unknown status or out-of-range progress.
func (e StatusEvent) Validate() error { return check(e) }

// Validate checks a reorder intent.
func (r ReorderIntent) Validate() error { return check(r) }
