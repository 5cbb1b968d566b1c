package service

import (
	"math/rand/v2"
	"strings"
)

type replyRule struct {
	keywords []string
	reply    string
}

// Checked in order, first match wins. Topic rules come before the greeting
// so "hi, my download fails" gets the download answer.
var replyRules = []replyRule{
	{
		keywords: []string{"upload", "download", "file"},
		reply:    "Shared files live on the Files tab. Public uploads are visible to everyone and download links stay valid for an hour.",
	},
	{
		keywords: []string{"private", "permission", "access denied"},
		reply:    "Private files can only be downloaded by the person who uploaded them and by administrators.",
	},
	{
		keywords: []string{"programming", "code"},
		reply:    "Happy to talk code! Drop a snippet or a question and someone from the community will take a look too.",
	},
	{
		keywords: []string{"error", "problem", "bug"},
		reply:    "Sorry you're running into trouble. Could you describe what you did and the exact error you saw?",
	},
	{
		keywords: []string{"hello", "hi", "hey"},
		reply:    "Hello! Welcome to the hub. I'm the resident bot, ask me about files, chat or your account.",
	},
}

var fallbackReplies = []string{
	"Interesting! Tell me more.",
	"I'm only a simple bot, but I can point you to files, chat and account help.",
	"Thanks for the message! Anything specific I can help with?",
	"Noted. If you need a file, check the Files tab.",
	"Good question. An administrator might know more about that one.",
	"I'm here around the clock if you need help finding something.",
}

// SelectReply picks a canned reply for text. intn is used for the fallback pick
// and defaults to math/rand.
func SelectReply(text string, intn func(n int) int) string {
	lower := strings.ToLower(text)

	for _, r := range replyRules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.reply
			}
		}
	}

	if intn == nil {
		intn = rand.IntN
	}

	return fallbackReplies[intn(len(fallbackReplies))]
}
