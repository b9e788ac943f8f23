// Package simulate drives a running scorecard service like a panel of
// evaluators and checks the published ranking against a local recomputation.
package simulate

import (
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Candidates int           // Number of candidates to seed
	Evaluators int           // Number of evaluators to seed
	Items      int           // Number of rubric items to seed
	Workers    int           // Concurrent evaluator sessions
	RPS        float64       // Request rate limit; <= 0 is unlimited
	AdminToken string        // Bearer token for admin routes
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Seed for the generated plan
	RunID      string        // Prefix for candidate and evaluator ids
	Verbose    bool          // Log every session
}

// Validate checks that the run is well formed.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url must not be empty", ErrConfig)
	case c.Candidates < 1 || c.Evaluators < 1 || c.Items < 1:
		return fmt.Errorf("%w: candidates, evaluators and items must be positive", ErrConfig)
	case c.RunID == "":
		return fmt.Errorf("%w: run id must not be empty", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	ScoresSubmitted   int
	ScoresReplayed    int
	SessionsSubmitted int
	Failed            int
	ResultsRetrieved  int
	Mismatch          bool
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
