package flickr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newToken returns a callback name that is a valid JavaScript identifier.
func newToken() string {
	return "cb" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// unwrapJSONP splits `name({...});` into the callback name and its JSON argument.
func unwrapJSONP(body []byte) (string, []byte, error) {
	b := bytes.TrimSpace(body)
	b = bytes.TrimSuffix(b, []byte(";"))
	b = bytes.TrimSpace(b)

	open := bytes.IndexByte(b, '(')
	if open <= 0 || b[len(b)-1] != ')' {
		return "", nil, fmt.Errorf("not a jsonp response: %.40q", b)
	}

	name := string(bytes.TrimSpace(b[:open]))
	return name, b[open+1 : len(b)-1], nil
}
