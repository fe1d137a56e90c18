package types

// RowID is a 0-based row index within a table. It is stable only between
// structural mutations of that table; inserting, erasing, moving or swapping
// rows renumbers the rows after the mutation point.
type RowID int

// RowNone denotes the absence of a row (a null link target).
const RowNone RowID = -1

// ColID is the index of a public column within its table.
type ColID int

// TableID is the index of a table within its group.
type TableID int

// LinkKind distinguishes strong links, whose removal can cascade into the
// target row, from weak links, which are silently nullified.
type LinkKind int

const (
	// Strong links keep their target row alive; when the last strong link
	// to a row is severed the row is removed and its own strong links
	// cascade in turn.
	Strong LinkKind = iota

	// Weak links are informational; severing them never removes the target.
	Weak
)

// String returns "strong" or "weak".
func (k LinkKind) String() string {
	if k == Weak {
		return "weak"
	}
	return "strong"
}
