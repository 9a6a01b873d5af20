// Package processor provides a composable finding processing pipeline.
//
// The processor chain pattern is inspired by golangci-lint's approach:
// findings flow through a sequence of processors, each transforming the
// slice (filtering, modifying, or reordering). Deliveries land in the
// finding store unprocessed; the chain runs when a consumer (reporter,
// diagnostics publisher) reads a consolidated slice.
//
// Standard pipeline order:
//  1. Dedup - drop findings sharing a UID
//  2. ErrorFilter - apply per-linter error-filter patterns
//  3. Sort - stable output ordering
package processor

import (
	"github.com/wharflab/relint/internal/finding"
)

// Processor transforms a slice of findings. Implementations must not
// mutate the findings themselves, only the slice.
type Processor interface {
	// Name returns the processor's identifier (for debugging/logging).
	Name() string

	// Process applies the processor's logic to findings.
	Process(findings []*finding.Finding) []*finding.Finding
}

// Chain runs processors in order.
type Chain struct {
	processors []Processor
}

// NewChain creates a chain from the given processors.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Run passes findings through every processor in order.
func (c *Chain) Run(findings []*finding.Finding) []*finding.Finding {
	for _, p := range c.processors {
		findings = p.Process(findings)
	}
	return findings
}

// Sort orders findings by document position for stable output.
type Sort struct{}

// Name returns the processor's identifier.
func (Sort) Name() string { return "sort" }

// Process implements Processor.
func (Sort) Process(findings []*finding.Finding) []*finding.Finding {
	finding.Sort(findings)
	return findings
}

// Cap bounds the number of findings, keeping the first Limit entries.
// A zero or negative limit disables the cap.
type Cap struct {
	Limit int
}

// Name returns the processor's identifier.
func (Cap) Name() string { return "cap" }

// Process implements Processor.
func (p Cap) Process(findings []*finding.Finding) []*finding.Finding {
	if p.Limit <= 0 || len(findings) <= p.Limit {
		return findings
	}
	return findings[:p.Limit]
}
