package legisinfo

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/agentstation/legisync/pkg/errors"
)

// ParseDate parses the "YYYY-MM-DD" prefix of a feed timestamp such as
// "2013-04-05T00:00:00". Anything after the first ten characters is ignored.
func ParseDate(text string) (civil.Date, error) {
	prefix := text
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	parts := strings.Split(prefix, "-")
	if len(parts) != 3 {
		return civil.Date{}, errors.NewParseError("date", text, "expected YYYY-MM-DD", nil)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return civil.Date{}, errors.NewParseError("date", text, "expected YYYY-MM-DD", err)
		}
		nums[i] = n
	}
	d := civil.Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}
	if !d.IsValid() {
		return civil.Date{}, errors.NewParseError("date", text, "no such calendar date", nil)
	}
	return d, nil
}
