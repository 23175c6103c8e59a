package kit

import "github.com/tidwall/gjson"

// countCandidates is the ordered list of fields a count-style response may
// carry its total under. First hit wins.
var countCandidates = []string{
	"total_count",
	"meta.total_count",
	"total_subscribers",
	"count",
	"pagination.total",
}

// extractCount resolves a total from a count-style response body. It reports
// false when no candidate field is present; callers decide the final
// fallback (typically the length of the result array). The result is a
// best-effort approximation, not a guaranteed exact count.
func extractCount(raw []byte) (int64, bool) {
	for _, path := range countCandidates {
		if v := gjson.GetBytes(raw, path); v.Exists() {
			return v.Int(), true
		}
	}
	return 0, false
}
