package datasource

import (
	"fmt"
	"net/http"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// httpStatusError is returned by Fetcher.Fetch when the datafile endpoint responds with a
// non-2xx status.
type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string { return e.Message }

// isHTTPErrorRecoverable reports whether a retry on the next poll cycle is worth attempting.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case 400, 408, 429:
			return true
		default:
			return false
		}
	}
	return true
}

func httpErrorDescription(statusCode int) string {
	return fmt.Sprintf("HTTP error %d", statusCode)
}

// LogFetchError logs a fetch failure at the severity spec §7 calls for (error for
// unrecoverable, warn for recoverable-and-will-retry) and reports whether the caller should
// keep retrying on the next cycle.
func LogFetchError(loggers ldlog.Loggers, err error) (recoverable bool) {
	if hse, ok := err.(httpStatusError); ok {
		if !isHTTPErrorRecoverable(hse.Code) {
			loggers.Errorf("fetch: %s (giving up)", httpErrorDescription(hse.Code))
			return false
		}
		loggers.Warnf("fetch: %s (will retry at next scheduled poll)", httpErrorDescription(hse.Code))
		return true
	}
	loggers.Warnf("fetch: %s (will retry at next scheduled poll)", err.Error())
	return true
}

func checkForHTTPError(statusCode int, url string) error {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return httpStatusError{
			Message: fmt.Sprintf("not authorized to access datafile URL: %s", url),
			Code:    statusCode,
		}
	}
	if statusCode == http.StatusNotFound {
		return httpStatusError{
			Message: fmt.Sprintf("datafile URL not found: %s", url),
			Code:    statusCode,
		}
	}
	if statusCode/100 != 2 {
		return httpStatusError{
			Message: fmt.Sprintf("unexpected response code %d from datafile URL: %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}
