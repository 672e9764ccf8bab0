package domain

// System locations use fixed-width numeric ids. Anything longer is a
// user-defined label whose folder-vs-tag nature must be resolved through
// a LabelLookup.
const (
	LabelInbox     = "0"
	LabelAllDrafts = "1"
	LabelAllSent   = "2"
	LabelTrash     = "3"
	LabelSpam      = "4"
	LabelAllMail   = "5"
	LabelArchive   = "6"
	LabelSent      = "7"
	LabelDrafts    = "8"
	LabelStarred   = "10"
)

const maxLocationIDLen = 2

type LabelType string

const (
	LabelTypeSystem LabelType = "system"
	LabelTypeUser   LabelType = "user"
)

// Label describes a folder or tag known to the account.
type Label struct {
	ID        string
	UserID    string
	Name      string
	Type      LabelType
	Exclusive bool // folder-like: a message files into it singularly
	Color     string
}

// LabelLookup resolves a user-defined label id. It may be nil, in which
// case unknown labels are treated as non-exclusive tags.
type LabelLookup func(labelID string) (Label, bool)

// IsSystemLocation reports whether labelID is a fixed numeric location id.
func IsSystemLocation(labelID string) bool {
	return len(labelID) <= maxLocationIDLen
}

// IsExclusive reports whether labelID behaves like a folder. System
// locations are always exclusive; user labels are resolved via lookup.
func IsExclusive(labelID string, lookup LabelLookup) bool {
	if IsSystemLocation(labelID) {
		return true
	}
	if lookup == nil {
		return false
	}
	l, ok := lookup(labelID)
	return ok && l.Exclusive
}

// preservedOnMove holds the pseudo-locations a folder move never strips.
var preservedOnMove = map[string]struct{}{
	LabelAllDrafts: {},
	LabelAllSent:   {},
	LabelAllMail:   {},
	LabelStarred:   {},
}

// PreservedOnMove reports whether labelID survives any folder move.
func PreservedOnMove(labelID string) bool {
	_, ok := preservedOnMove[labelID]
	return ok
}

// StripOnMove returns the subset of labelIDs that filing into folderID
// removes: exclusive labels only, excluding the preserved pseudo-locations
// and the destination folder itself. Tags are never stripped.
func StripOnMove(labelIDs []string, folderID string, lookup LabelLookup) []string {
	var strip []string
	for _, l := range labelIDs {
		if l == folderID || PreservedOnMove(l) {
			continue
		}
		if IsExclusive(l, lookup) {
			strip = append(strip, l)
		}
	}
	return strip
}
