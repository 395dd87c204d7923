package store

import "fmt"

// Key namespace. Entities live under `<type>:{id}`; derived indices live
// under `idx:`. Indices are recoverable from entity payloads.
const (
	goalKeyPrefix     = "goal:"
	questKeyPrefix    = "quest:"
	skillKeyPrefix    = "skill:"
	drillKeyPrefix    = "drill:"
	sparkKeyPrefix    = "spark:"
	reminderKeyPrefix = "reminder:"

	// reminderScheduleKey is the global dispatch queue: a sorted set of
	// reminder ids scored by scheduledTime in epoch milliseconds.
	reminderScheduleKey = "reminder:schedule"

	// drillScheduleKey tracks non-terminal drills scored by their
	// scheduled date (UTC midnight, epoch milliseconds) so the expiry
	// sweep can find lapsed drills without scanning goals.
	drillScheduleKey = "drill:schedule"
)

func goalKey(id string) string     { return goalKeyPrefix + id }
func questKey(id string) string    { return questKeyPrefix + id }
func skillKey(id string) string    { return skillKeyPrefix + id }
func drillKey(id string) string    { return drillKeyPrefix + id }
func sparkKey(id string) string    { return sparkKeyPrefix + id }
func reminderKey(id string) string { return reminderKeyPrefix + id }

func userGoalsKey(userID string) string       { return "idx:user:" + userID + ":goals" }
func userActiveGoalsKey(userID string) string { return "idx:user:" + userID + ":activegoals" }
func userSkillsKey(userID string) string      { return "idx:user:" + userID + ":skills" }
func userActiveDrillKey(userID string) string { return "idx:user:" + userID + ":activedrill" }
func goalQuestsKey(goalID string) string      { return "idx:goal:" + goalID + ":quests" }
func goalSkillsKey(goalID string) string      { return "idx:goal:" + goalID + ":skills" }
func questSkillsKey(questID string) string    { return "idx:quest:" + questID + ":skills" }
func weekDrillsKey(weekPlanID string) string  { return "idx:week:" + weekPlanID + ":drills" }
func sparkRemindersKey(sparkID string) string { return "idx:spark:" + sparkID + ":reminders" }

func drillByDateKey(goalID, date string) string {
	return fmt.Sprintf("idx:goal:%s:drill:%s", goalID, date)
}

// drillByDatePattern matches every drill-by-date key of a goal; cascade uses
// it to collect the goal's drills without a per-skill index.
func drillByDatePattern(goalID string) string {
	return fmt.Sprintf("idx:goal:%s:drill:*", goalID)
}
