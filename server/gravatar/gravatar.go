package gravatar

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// URL returns the gravatar image URL for the given email address.
// The digest is computed over the trimmed, lower-cased address as
// required by the gravatar convention. 'd=404' makes gravatar return
// a 404 instead of a placeholder when no image exists for the email.
func URL(email string) string {
	digest := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=250&r=pg&d=404", digest)
}
