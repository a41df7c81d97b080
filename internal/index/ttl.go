package index

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ttlUnits lists the time units accepted by Elasticsearch, longest suffix first so "ms"
// is not read as "m".
var ttlUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"micros", time.Microsecond},
	{"nanos", time.Nanosecond},
	{"ms", time.Millisecond},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// ParseTTL parses a keep-alive such as "10m", "30s" or "1d".
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, u := range ttlUnits {
		num, ok := strings.CutSuffix(s, u.suffix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: ttl %q must be a positive integer followed by a unit", ErrInvalidRequest, s)
		}
		return time.Duration(n) * u.unit, nil
	}
	return 0, fmt.Errorf("%w: ttl %q has no unit (d, h, m, s, ms, micros, nanos)", ErrInvalidRequest, s)
}
