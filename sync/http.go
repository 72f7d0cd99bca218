package sync

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
)

// HTTPRequestTimeout is the default timeout for all HTTP requests to external APIs.
const HTTPRequestTimeout = 60 * time.Second

// newAPIBuilder returns a requests.Builder rooted at endpoint. Relative paths
// passed to Path/Pathf are appended to the endpoint path. With RecordRequests
// set, responses are captured under testdata for replay in tests.
func (s *SyncContext) newAPIBuilder(endpoint string, remote string) *requests.Builder {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	result := requests.
		URL(endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if s.RecordRequests {
		result = result.Transport(requests.Record(nil, fmt.Sprintf("testdata/.requests/%s/%s", s.Job, remote)))
	}
	return result
}
