// Package badge renders repository totals as shields.io endpoint JSON
// artifacts.
package badge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// Artifact file names are part of the external contract: badge renderers
// fetch them by URL, so they never change between runs.
const (
	CounterFile   = "badge_clones.json"
	MilestoneFile = "milestone_badge.json"
)

const (
	counterLabel   = "# clones"
	milestoneLabel = "milestone"
)

// Badge is one shields.io endpoint payload.
type Badge struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

// CounterBadge reports the lifetime clone total as an exact count.
func CounterBadge(total int) Badge {
	return Badge{
		Label:   counterLabel,
		Message: strconv.Itoa(total),
		Color:   "blue",
	}
}

// EvaluateMilestone maps a lifetime total onto the highest tier it clears.
// Thresholds are checked highest first so a total qualifies for exactly one
// tier.
func EvaluateMilestone(total int) Badge {
	switch {
	case total >= 2000:
		return Badge{Label: milestoneLabel, Message: "2k+ clones", Color: "red"}
	case total >= 1000:
		return Badge{Label: milestoneLabel, Message: "1k+ clones", Color: "orange"}
	case total >= 500:
		return Badge{Label: milestoneLabel, Message: "500+ clones", Color: "goldenrod"}
	default:
		return Badge{Label: milestoneLabel, Message: "Coming soon...", Color: "lightgrey"}
	}
}

// WriteAll derives both badges from the lifetime total and writes them under
// dir, creating it if needed. Each badge lands in its own file so renderers
// can fetch them independently.
func WriteAll(dir string, total int) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create badge dir: %w", err)
	}

	artifacts := map[string]Badge{
		CounterFile:   CounterBadge(total),
		MilestoneFile: EvaluateMilestone(total),
	}
	for name, b := range artifacts {
		if err := writeBadge(filepath.Join(dir, name), b); err != nil {
			return err
		}
	}

	return nil
}

func writeBadge(path string, b Badge) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal badge: %w", err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("write badge %s: %w", filepath.Base(path), err)
	}

	return nil
}
