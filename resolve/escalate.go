package resolve

import "strings"

// Phrases an answer uses when the model admits it cannot help.
// Matching is plain substring search over the lowercased answer, so the
// set stays cheap and deterministic.
var escalationPhrases = []string{
	"contact support",
	"contact our support",
	"cannot find",
	"can't find",
	"couldn't find",
	"don't know",
	"do not know",
	"cannot help",
	"can't help",
	"unable to help",
	"unable to answer",
	"no information",
	"don't have information",
	"don't have that information",
	"not able to assist",
	"reach out to support",
}

// ShouldEscalate reports whether an answer admits inability to help and
// the visitor should be pointed at a human.
func ShouldEscalate(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range escalationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// appendContact appends the escalation contact line once. Answers that
// already mention the phone number are left alone.
func appendContact(answer, phone string) string {
	if phone == "" || strings.Contains(answer, phone) {
		return answer
	}
	return answer + "\n\nYou can reach our team directly at " + phone + "."
}
