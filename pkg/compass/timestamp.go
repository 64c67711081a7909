package compass

import (
	"fmt"
	"strings"
	"time"
)

// exchangeLayout is the layout the exchange uses for candle boundaries
const exchangeLayout = "2006-01-02 15:04:05"

// Timestamp is a time value that accepts the exchange's "YYYY-MM-DD hh:mm:ss"
// form as well as RFC3339 and date-only values
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)

	if str == "" || str == "null" {
		ts.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{exchangeLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			ts.Time = t
			return nil
		}
	}

	return fmt.Errorf("unable to parse timestamp: %s", str)
}

// MarshalJSON implements json.Marshaler for Timestamp
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf(`"%s"`, ts.Time.Format(exchangeLayout))), nil
}

// String returns the timestamp in exchange form
func (ts Timestamp) String() string {
	if ts.Time.IsZero() {
		return ""
	}
	return ts.Time.Format(exchangeLayout)
}
