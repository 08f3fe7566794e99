package searchstore

// sourceFilter expands a requested field-includes/excludes list per
// spec.md section 4.4: "if attributes is requested (or excluded),
// automatically include (or exclude) unindexed_attributes alongside."
func sourceFilter(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields)+1)
	hasUnindexed := false
	for _, f := range fields {
		out = append(out, f)
		if f == "unindexed_attributes" {
			hasUnindexed = true
		}
	}
	for _, f := range fields {
		if f == "attributes" && !hasUnindexed {
			out = append(out, "unindexed_attributes")
			hasUnindexed = true
		}
	}
	return out
}
