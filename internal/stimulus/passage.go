package stimulus

import (
	"fmt"
	"strings"
)

const (
	passageMinWords = 80
	passageMaxWords = 200
)

// VerifyPassage checks that a reading passage falls inside the word
// bounds used by the prompts.
func VerifyPassage(content string) error {
	words := len(strings.Fields(content))
	if words < passageMinWords {
		return fmt.Errorf("passage has %d words, minimum is %d", words, passageMinWords)
	}
	if words > passageMaxWords {
		return fmt.Errorf("passage has %d words, maximum is %d", words, passageMaxWords)
	}
	return nil
}
