// Package notify delivers capture failure notices to operators.
package notify

import "time"

// AppName is the application name used in notifications.
const AppName = "Symptom Intake Agent"

// timestampUTC returns t in UTC RFC3339 format.
func timestampUTC(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
