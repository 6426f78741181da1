package mission

import (
	"fmt"
	"math"
	"strings"

	"myspy/internal/domain"
)

// ValidateAnswer checks a candidate answer against the question's
// type-specific predicate. An invalid value never reaches the network.
func ValidateAnswer(q domain.Question, value any) error {
	switch q.Type {
	case domain.QuestionRating:
		n, ok := asNumber(value)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("rating answer must be an integer")
		}
		min, max := q.RatingBounds()
		if int(n) < min || int(n) > max {
			return fmt.Errorf("rating answer must be between %d and %d", min, max)
		}
		return nil
	case domain.QuestionBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("boolean answer must be true or false")
		}
		return nil
	case domain.QuestionText:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("text answer must not be empty")
		}
		return nil
	case domain.QuestionNumeric:
		if _, ok := asNumber(value); !ok {
			return fmt.Errorf("numeric answer must be a finite number")
		}
		return nil
	case domain.QuestionUpload:
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("upload answer must carry a data payload")
		}
		return nil
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
}

// asNumber accepts the numeric shapes JSON decoding and UI input produce.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return asNumber(float64(v))
	default:
		return 0, false
	}
}
