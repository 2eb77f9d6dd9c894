package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseEstimatedTime parses the backend's duration strings. The wire
// format is "HH:MM:SS"; Go duration strings ("2m30s") are accepted too.
func ParseEstimatedTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if parts := strings.Split(s, ":"); len(parts) == 3 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		sec, errS := strconv.Atoi(parts[2])
		if errH == nil && errM == nil && errS == nil {
			return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
		}
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	return 0, fmt.Errorf("unparseable duration %q", s)
}
