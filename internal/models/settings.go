package models

// Theme is the UI color scheme preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// NotificationFrequency controls reminder cadence
type NotificationFrequency string

const (
	NotificationDaily   NotificationFrequency = "daily"
	NotificationWeekly  NotificationFrequency = "weekly"
	NotificationMonthly NotificationFrequency = "monthly"
)

// UserSettings holds per-user preferences
type UserSettings struct {
	Theme                 Theme                 `json:"theme" validate:"required,oneof=light dark"`
	NotificationsEnabled  bool                  `json:"notifications_enabled"`
	EmailNotifications    bool                  `json:"email_notifications"`
	NotificationFrequency NotificationFrequency `json:"notification_frequency" validate:"required,oneof=daily weekly monthly"`
}

// DefaultUserSettings returns the settings used before a user saves any
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Theme:                 ThemeLight,
		NotificationsEnabled:  true,
		EmailNotifications:    true,
		NotificationFrequency: NotificationDaily,
	}
}
