package store

import "mailassist/internal/model"

// DefaultPrompts 首次启动（没有快照）时写入的内置 prompt
func DefaultPrompts() []model.PromptConfig {
	return []model.PromptConfig{
		{
			ID:       model.PromptCategorize,
			Name:     "Categorization",
			Template: "Categorize the following email into one of these categories: Important, Newsletter, Spam, To-Do. To-Do emails must include a direct request requiring user action. Return only the category name.",
			SystemTemplate: "You are an email triage assistant. Classify the email into exactly one of these categories:\n" +
				"- Important: time-sensitive or high-stakes messages from real people (managers, clients, family) that need attention.\n" +
				"- To-Do: the email contains a direct request that requires the user to take an action.\n" +
				"- Newsletter: bulk informational content, digests, product updates, marketing.\n" +
				"- Spam: unsolicited, suspicious or phishing messages.\n" +
				"Respond with the category name only, no punctuation and no explanation.",
			Description: "Determines the category of an email.",
		},
		{
			ID:       model.PromptActionItems,
			Name:     "Action Item Extraction",
			Template: "Extract tasks from the email. Return a JSON list of objects with 'task' and 'deadline' fields. If no tasks, return an empty list.",
			SystemTemplate: "Extract every actionable task the recipient must do from the email.\n" +
				"Return ONLY a JSON array of objects with the string fields \"task\" and \"deadline\".\n" +
				"Use the deadline as written in the email (e.g. \"Friday 5pm\"), or an empty string if none is given.\n" +
				"If there are no tasks, return [].",
			Description: "Extracts actionable tasks from email content.",
		},
		{
			ID:          model.PromptAutoReply,
			Name:        "Auto-Reply Draft",
			Template:    "Draft a polite and professional reply to this email. If it is a meeting request, ask for an agenda. Keep it concise.",
			Description: "Generates a draft reply.",
		},
	}
}
