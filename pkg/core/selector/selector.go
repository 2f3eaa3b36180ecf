// Package selector turns the flat, multi-file result list of one batched
// subtitle search back into a single download decision per fingerprint.
package selector

// Record is one row of the decoded search response.
type Record struct {
	// Hash is the movie fingerprint, 16 lowercase hex digits.
	Hash string
	// SubtitleID identifies the subtitle file on the remote service.
	SubtitleID string
	// Bad is the raw quality flag from the service. Only the literal
	// "0" marks a usable subtitle; "1", empty, or anything else is
	// excluded.
	Bad string
}

// Usable reports whether the record passed the remote quality check.
func (r Record) Usable() bool {
	return r.Bad == "0"
}

// Download is one entry of the download plan: the chosen subtitle for a
// fingerprint.
type Download struct {
	Hash       string
	SubtitleID string
}

// SelectDownloads reduces records to at most one Download per fingerprint
// present in requested.
//
// Records flagged bad are dropped first. The remaining sequence is
// deduplicated by fingerprint with the first record winning. Plan
// entries keep the order in which their fingerprint first appeared. A
// requested fingerprint with no surviving record yields no entry.
//
// Deduplication tracks every fingerprint seen so far rather than only
// collapsing adjacent duplicates; the service usually returns results
// sorted by fingerprint, but nothing documents that, and the plan must
// never hold two entries for the same file.
func SelectDownloads(requested map[string]bool, records []Record) []Download {
	plan := make([]Download, 0, len(requested))
	seen := make(map[string]bool, len(records))

	for _, r := range records {
		if !r.Usable() || seen[r.Hash] {
			continue
		}
		seen[r.Hash] = true
		if requested[r.Hash] {
			plan = append(plan, Download{Hash: r.Hash, SubtitleID: r.SubtitleID})
		}
	}
	return plan
}
