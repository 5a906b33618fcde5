package stage

import (
	"lector/internal/book"
	"lector/internal/services"
)

// ParsePlan parses the chunk plan carried on a queue item.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParsePlan(raw string) (book.Plan, error) {
	plan, err := book.ParsePlan(raw)
	if err != nil {
		return book.Plan{}, services.Wrap(
			services.ErrValidation, "stage", "parse chunk plan",
			"Chunk plan missing or invalid; rerun planning", err)
	}
	return plan, nil
}
