package curriculum

import (
	"fmt"
	"strings"
)

// systemPrompt is the fixed instruction set for every generation request.
// The model is told to reference resources by index only; the pipeline
// enforces this after the fact and never trusts the model to comply.
const systemPrompt = `You are a curriculum designer. You turn a numbered list of learning resources into a day-by-day study plan.

Rules:
- Respond with a single JSON object and nothing else. No prose, no code fences.
- Reference resources ONLY by their 1-based index from the provided list. Never invent resources, titles, or URLs.
- The JSON object has: "title", "description", "difficulty" (beginner|intermediate|advanced), "progression" (flat|gradual|steep), and "days".
- Each day has: "day" (1..N, consecutive, no gaps), "theme", "objectives" (array of strings), "resources" (array of {"index", "minutes", "optional"?, "focus"?}), "exercises" (array of {"type": practice|quiz|project|reflection|discussion, "description", "minutes", "optional"?}), "totalMinutes", "difficulty", and optionally "prerequisiteDays" (day numbers strictly less than the current day).
- Keep each day's total minutes close to the requested daily budget.`

// buildUserPrompt renders the resource list with 1-based indices plus the
// plan shape the caller asked for.
func buildUserPrompt(goalTitle string, days, minutesPerDay int, resources []Resource) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", goalTitle)
	fmt.Fprintf(&sb, "Plan length: %d days, about %d minutes per day.\n\n", days, minutesPerDay)
	sb.WriteString("Available resources:\n")
	for i, r := range resources {
		sb.WriteString(formatResource(i+1, r))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatResource(index int, r Resource) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s", index, r.Title)

	var attrs []string
	if r.Provider != "" {
		attrs = append(attrs, r.Provider)
	}
	if r.Difficulty != "" {
		attrs = append(attrs, r.Difficulty)
	}
	if r.Minutes > 0 {
		attrs = append(attrs, fmt.Sprintf("~%dmin", r.Minutes))
	}
	if len(attrs) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(attrs, ", "))
	}
	if len(r.Topics) > 0 {
		fmt.Fprintf(&sb, " — Topics: %s", strings.Join(r.Topics, ", "))
	}
	return sb.String()
}
