package domain

import "time"

// Well-known setting keys.
const (
	SettingSessionTimeout      = "session_timeout"
	SettingWarningBeforeLogout = "warning_before_logout"
	SettingMaxLoginAttempts    = "max_login_attempts"
	SettingSiteName            = "site_name"
	SettingAllowRegistration   = "allow_registration"
)

// Setting is a global key/value option editable from the admin panel.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultSettings are seeded into an empty settings store.
func DefaultSettings() []Setting {
	return []Setting{
		{Key: SettingSessionTimeout, Value: "900000", Description: "Session timeout in milliseconds (15 minutes)"},
		{Key: SettingWarningBeforeLogout, Value: "30000", Description: "Warning time before logout in milliseconds (30 seconds)"},
		{Key: SettingMaxLoginAttempts, Value: "5", Description: "Maximum login attempts before lockout"},
		{Key: SettingSiteName, Value: "TELC Exam Platform", Description: "Website name"},
		{Key: SettingAllowRegistration, Value: "0", Description: "Allow user self-registration (0=no, 1=yes)"},
	}
}
