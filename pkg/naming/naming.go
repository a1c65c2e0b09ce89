// Package naming maps source object identities to flat destination keys.
//
// The contract is bit-exact: destination key =
// {logical date formatted per the configured layout}{separator}{basename of
// the source identity}, and the result must contain no path separators and
// no whitespace. The date layout and separator are validated once at
// configuration time; DestinationKey itself never fails.
package naming

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// Namer is the pure naming function. It is deterministic and safe for
// concurrent use.
type Namer struct {
	dateLayout string
	separator  string
}

// New creates a Namer, validating that the layout and separator can never
// introduce a path separator or whitespace into a destination key.
//
// Two distinct source identities with the same basename under the same
// logical date collide by design: last transfer wins. That property follows
// from the flat naming contract and is accepted, not a defect.
func New(dateLayout, separator string) (*Namer, error) {
	if dateLayout == "" {
		return nil, fmt.Errorf("naming: date layout must not be empty")
	}
	if separator == "" {
		return nil, fmt.Errorf("naming: separator must not be empty")
	}
	if err := validateFragment("separator", separator); err != nil {
		return nil, err
	}

	// The layout is validated through a rendered sample: layout runes that
	// survive formatting verbatim (like "/") only show up in output.
	sample := time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	if err := validateFragment("date layout", sample); err != nil {
		return nil, err
	}

	return &Namer{dateLayout: dateLayout, separator: separator}, nil
}

// DestinationKey returns the flat destination key for a source object
// filed under the given logical date.
func (n *Namer) DestinationKey(sourceIdentity string, logicalDate time.Time) string {
	return logicalDate.Format(n.dateLayout) + n.separator + path.Base(sourceIdentity)
}

func validateFragment(what, s string) error {
	if strings.ContainsRune(s, '/') || strings.ContainsRune(s, '\\') {
		return fmt.Errorf("naming: %s %q must not contain path separators", what, s)
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return fmt.Errorf("naming: %s %q must not contain whitespace", what, s)
		}
	}
	return nil
}
