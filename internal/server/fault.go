package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/quotagate/quotagate/internal/limits"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// limitsReport is the caller-facing limits payload, shaped like the
// conventional compute limits API so existing clients can consume it.
type limitsReport struct {
	Limits struct {
		Rate []limits.Row `json:"rate"`
	} `json:"limits"`
}

func writeLimitsReport(w http.ResponseWriter, rows []limits.Row) {
	var report limitsReport
	if rows == nil {
		rows = []limits.Row{}
	}
	report.Limits.Rate = rows

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// overLimitFault is the body of a rate-limited response.
type overLimitFault struct {
	OverLimitFault struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"overLimitFault"`
}

// WriteOverLimitFault renders the over-limit response for a denied request:
// 413 with a Retry-After header and a structured fault body built from the
// rule's configured values.
func WriteOverLimitFault(w http.ResponseWriter, rule *limits.Rule, verb string, retryAfter time.Duration) {
	details := fmt.Sprintf("Only %d %s request(s) can be made to %s every %s.",
		rule.Value, verb, rule.DisplayURI(), rule.DisplayUnit())

	var fault overLimitFault
	fault.OverLimitFault.Code = http.StatusRequestEntityTooLarge
	fault.OverLimitFault.Message = "This request was rate-limited."
	fault.OverLimitFault.Details = details

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter/time.Second), 10))
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_ = json.NewEncoder(w).Encode(fault)
}
