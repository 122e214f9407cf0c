package notifier

import (
	"fmt"

	"voice-relay-go/internal/types"
)

const (
	criticalTemplate    = "❌ **שגיאה קריטית בעיבוד**\nאירעה שגיאה בשרת: `%s`"
	recognitionTemplate = "❌ שגיאה בזיהוי הדיבור. (קובץ: %s)\n%s"
)

// Plan decides the messages for a completed run. No speech yields nothing;
// recognized speech yields the transcript followed by the summary text,
// whatever the summary outcome was.
func Plan(tr types.TranscriptionResult, outcome types.SummaryOutcome, fileURL string) types.NotificationPlan {
	switch tr.Status {
	case types.Recognized:
		if tr.Text == "" {
			return types.NotificationPlan{}
		}
		return types.NotificationPlan{Messages: []string{tr.Text, outcome.Text}}
	case types.EngineError:
		return types.NotificationPlan{Messages: []string{fmt.Sprintf(recognitionTemplate, fileURL, tr.Detail)}}
	default:
		return types.NotificationPlan{}
	}
}

// DiagnosticPlan describes a fatal pipeline error in exactly one message.
func DiagnosticPlan(err error) types.NotificationPlan {
	return types.NotificationPlan{Messages: []string{fmt.Sprintf(criticalTemplate, err)}}
}
