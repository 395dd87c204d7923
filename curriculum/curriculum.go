// Package curriculum turns a verified list of learning resources into a
// day-by-day study plan using a single-turn LLM request. The model only ever
// references resources by 1-based index into the input list; every returned
// plan is schema-validated and cross-checked against the inputs before it is
// resolved, so the model cannot introduce URLs, titles, or resources of its
// own.
package curriculum

import (
	"context"
	"time"
)

type (
	// Resource is one pre-verified learning resource offered to the
	// structurer. The structurer never sends URLs to the model; they are
	// reattached during resolution.
	Resource struct {
		// Title names the resource.
		Title string `json:"title"`
		// URL locates the resource. Never included in prompts.
		URL string `json:"url,omitempty"`
		// Provider names the source site or publisher.
		Provider string `json:"provider,omitempty"`
		// Difficulty is the resource's own difficulty label.
		Difficulty string `json:"difficulty,omitempty"`
		// Minutes estimates the time to consume the resource.
		Minutes int `json:"minutes,omitempty"`
		// Topics lists the subjects the resource covers.
		Topics []string `json:"topics,omitempty"`
	}

	// Plan is the raw curriculum as returned by the model, after schema
	// validation but before index resolution.
	Plan struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		// Difficulty is one of beginner, intermediate, advanced.
		Difficulty string `json:"difficulty"`
		// Progression is one of flat, gradual, steep.
		Progression string `json:"progression"`
		Days        []Day  `json:"days"`
	}

	// Day is one day of the plan. Day numbers are 1-based and consecutive.
	Day struct {
		Day        int           `json:"day"`
		Theme      string        `json:"theme"`
		Objectives []string      `json:"objectives"`
		Resources  []ResourceRef `json:"resources"`
		Exercises  []Exercise    `json:"exercises"`
		// TotalMinutes is the model's own sum for the day. Checked against
		// the itemized minutes; a mismatch is a warning, not an error.
		TotalMinutes int    `json:"totalMinutes"`
		Difficulty   string `json:"difficulty"`
		// PrerequisiteDays lists earlier day numbers this day builds on.
		PrerequisiteDays []int `json:"prerequisiteDays,omitempty"`
	}

	// ResourceRef points into the input resource list by 1-based index.
	ResourceRef struct {
		Index    int    `json:"index"`
		Minutes  int    `json:"minutes"`
		Optional bool   `json:"optional,omitempty"`
		Focus    string `json:"focus,omitempty"`
	}

	// Exercise is a self-contained activity with no resource backing.
	Exercise struct {
		// Type is one of practice, quiz, project, reflection, discussion.
		Type        string `json:"type"`
		Description string `json:"description"`
		Minutes     int    `json:"minutes"`
		Optional    bool   `json:"optional,omitempty"`
	}

	// ResolvedCurriculum is an accepted plan with every resource reference
	// resolved back to the full input record, plus generation metadata.
	ResolvedCurriculum struct {
		ID          string        `json:"id"`
		UserID      string        `json:"userId"`
		GoalID      string        `json:"goalId,omitempty"`
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Difficulty  string        `json:"difficulty"`
		Progression string        `json:"progression"`
		Days        []ResolvedDay `json:"days"`
		// Warnings records non-fatal findings such as per-day minutes
		// mismatches or non-ASCII content.
		Warnings []string `json:"warnings,omitempty"`

		GeneratedAt time.Time `json:"generatedAt"`
		Model       string    `json:"model"`
		RequestID   string    `json:"requestId,omitempty"`
		Temperature float64   `json:"temperature"`
		TotalTokens int       `json:"totalTokens,omitempty"`
	}

	// ResolvedDay mirrors Day with resources carrying the full record.
	ResolvedDay struct {
		Day              int                `json:"day"`
		Theme            string             `json:"theme"`
		Objectives       []string           `json:"objectives"`
		Resources        []ResolvedResource `json:"resources"`
		Exercises        []Exercise         `json:"exercises"`
		TotalMinutes     int                `json:"totalMinutes"`
		Difficulty       string             `json:"difficulty"`
		PrerequisiteDays []int              `json:"prerequisiteDays,omitempty"`
	}

	// ResolvedResource pairs a day's resource reference with the input
	// record it points at.
	ResolvedResource struct {
		Index    int      `json:"index"`
		Minutes  int      `json:"minutes"`
		Optional bool     `json:"optional,omitempty"`
		Focus    string   `json:"focus,omitempty"`
		Resource Resource `json:"resource"`
	}

	// Archive persists accepted curricula. Archival is best-effort from the
	// engine's perspective: a failed Put never fails generation.
	Archive interface {
		// Put stores cur keyed by its ID, overwriting any previous record.
		Put(ctx context.Context, cur *ResolvedCurriculum) error
		// Get returns the curriculum with the given id or NOT_FOUND.
		Get(ctx context.Context, id string) (*ResolvedCurriculum, error)
		// ListByUser returns the user's curricula, newest first.
		ListByUser(ctx context.Context, userID string) ([]*ResolvedCurriculum, error)
	}
)
