package middleware

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
)

// ErrorHandler turns the last error a handler attached via c.Error into
// the admin surface's standard envelope, deriving the status code from
// the sentinel kind it was marked against.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		response := ierr.ErrorResponse{
			Success: false,
			Error: ierr.ErrorDetail{
				Display: displayMessage(err),
				Details: safeDetails(err),
			},
		}
		c.JSON(ierr.HTTPStatusFromErr(err), response)
	}
}

func displayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

func safeDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, "__json__:") {
				continue
			}
			var parsed map[string]any
			if jsonErr := json.Unmarshal([]byte(strings.TrimPrefix(payload, "__json__:")), &parsed); jsonErr == nil {
				for k, v := range parsed {
					details[k] = v
				}
			}
		}
	}
	return details
}
