package scanner

import "fmt"

// ExampleKind names a canned example email.
type ExampleKind string

const (
	ExampleSafe ExampleKind = "safe"
	ExampleSpam ExampleKind = "spam"
)

var examples = map[ExampleKind]string{
	ExampleSafe: "Hi John, I hope this email finds you well. I wanted to follow up on our meeting last week regarding the project timeline. Please let me know if you have any questions or concerns. Looking forward to hearing from you. Best regards, Sarah",
	ExampleSpam: "CONGRATULATIONS!!! You've WON $1,000,000 in our EXCLUSIVE lottery! Click here NOW to claim your CASH PRIZE before it expires! ACT FAST! Limited time offer! 100% FREE! No purchase necessary! Reply with your bank details to claim!!!",
}

// ExampleText returns the canned text for kind.
func ExampleText(kind ExampleKind) (string, error) {
	text, ok := examples[kind]
	if !ok {
		return "", fmt.Errorf("unknown example %q (want %q or %q)", kind, ExampleSafe, ExampleSpam)
	}
	return text, nil
}
