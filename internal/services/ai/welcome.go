package ai

import "fmt"

// SetupRequiredMessage is shown when an AI feature is used without a credential
const SetupRequiredMessage = "Please configure your OpenAI API key to use AI features. Check the AI Chat page for setup instructions."

// QuickAction is a canned chat prompt offered as a shortcut
type QuickAction struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// QuickActions returns the shortcut prompts in display order
func QuickActions() []QuickAction {
	return []QuickAction{
		{Label: "Create Goal", Message: "Help me create a new goal"},
		{Label: "Review Progress", Message: "Review my goal progress"},
		{Label: "Get Motivated", Message: "I need motivation"},
		{Label: "Celebrate", Message: "Celebrate my achievement"},
	}
}

// WelcomeMessage greets the user at the start of a chat
func WelcomeMessage(firstName string, configured bool) string {
	if firstName == "" {
		firstName = "there"
	}
	if configured {
		return fmt.Sprintf("Hi %s! 👋 I'm your personal Goal Tracking AI assistant. I can help you with:\n\n"+
			"🎯 Creating and refining goals\n"+
			"📈 Tracking progress\n"+
			"💡 Providing motivation\n"+
			"📊 Analyzing your goal patterns\n"+
			"🏆 Celebrating achievements\n\n"+
			"What would you like to work on today?", firstName)
	}
	return fmt.Sprintf("Hi %s! 👋 I'm your Goal Tracking AI assistant, but I need to be set up first.\n\n"+
		"To unlock my full potential, you'll need to configure an OpenAI API key. Click the setup button below to get started!\n\n"+
		"✨ Once configured, I can help you with goal planning, progress tracking, motivation, and much more!", firstName)
}
