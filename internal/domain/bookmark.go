package domain

// Bookmark is a progressive pagination cursor: the sort time and id of the
// last item of the most recently fetched page. The zero value means no
// page has been fetched yet, i.e. the next fetch starts from the newest.
// Bookmarks live only for the current paging session and are never
// persisted.
type Bookmark struct {
	Time int64
	ID   string
}

// Initial reports whether no page has been fetched under this bookmark.
func (b Bookmark) Initial() bool {
	return b == Bookmark{}
}
