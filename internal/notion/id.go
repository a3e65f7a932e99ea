package notion

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ParseID extracts an object id from a raw id or a Notion link.
//
// Links look like https://www.notion.so/Workspace-Title-0123456789abcdef0123456789abcdef,
// the id being the part of the last path segment after the final '-'.
// The result is the canonical dashed form.
func ParseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	raw := s

	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: malformed link %q: %w", ErrInvalidRequest, s, err)
		}
		segment := u.Path
		if i := strings.LastIndex(segment, "/"); i >= 0 {
			segment = segment[i+1:]
		}
		if i := strings.LastIndex(segment, "-"); i >= 0 {
			segment = segment[i+1:]
		}
		raw = segment
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a Notion id", ErrInvalidRequest, s)
	}
	return id.String(), nil
}

// validateID rejects ids that would change the shape of a request path.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty object id", ErrInvalidRequest)
	}
	if strings.ContainsAny(id, "/?#% \t\r\n") {
		return fmt.Errorf("%w: malformed object id %q", ErrInvalidRequest, id)
	}
	return nil
}
