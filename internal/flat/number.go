package flat

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidNumber is returned by ParseNumberStrict for labels without a numeric last token.
var ErrInvalidNumber = errors.New("invalid flat number")

// ParseNumber returns the integer in the last whitespace-separated token of
// a flat label such as "Квартира 12". Labels that do not end in a number
// yield 0; those rooms are grouped together as flat 0 instead of failing
// the run.
func ParseNumber(label string) int {
	n, err := ParseNumberStrict(label)
	if err != nil {
		return 0
	}
	return n
}

// ParseNumberStrict is ParseNumber that reports unparsable labels.
func ParseNumberStrict(label string) (int, error) {
	tokens := strings.Fields(label)
	if len(tokens) == 0 {
		return 0, eris.Wrap(ErrInvalidNumber, "flat: empty label")
	}
	last := tokens[len(tokens)-1]
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidNumber, "flat: label %q: token %q", label, last)
	}
	return n, nil
}
