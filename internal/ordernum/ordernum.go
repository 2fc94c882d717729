// Package ordernum generates globally unique, human-scannable order numbers.
package ordernum

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns an order number of the form ORD-YYYYMMDD-XXXXXXXX where the
// suffix is the first eight hex characters of a random UUID. The date prefix
// makes numbers sortable by eye; the UUID suffix carries the uniqueness.
func New(at time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), suffix)
}
