package types

// ListRef identifies one link-list cell: the origin table, the link-list
// column, and the origin row at the time of the event.
type ListRef struct {
	Table TableID
	Col   ColID
	Row   RowID
}

// Replication observes every semantic mutation of the link graph. Events are
// emitted before the reciprocal bookkeeping they describe, so a downstream
// log replayer sees the same order the mutation was requested in. The sink
// is called synchronously and must not retain transient arguments past the
// call.
type Replication interface {
	// SetLink records an assignment of a singular link cell. Target is
	// RowNone for nullification.
	SetLink(table TableID, col ColID, row RowID, target RowID)

	// LinkListInsert records an insertion into a link list.
	LinkListInsert(list ListRef, ndx int, target RowID)

	// LinkListSet records an in-place overwrite of one list position.
	LinkListSet(list ListRef, ndx int, target RowID)

	// LinkListErase records removal of one list position.
	LinkListErase(list ListRef, ndx int)

	// LinkListNullify records removal of a list position caused by the
	// target row being destroyed, as opposed to a direct erase.
	LinkListNullify(list ListRef, ndx int)

	// LinkListMove records a local reorder of one element.
	LinkListMove(list ListRef, from, to int)

	// LinkListSwap records a swap of two list positions. Indices are
	// canonicalized so that ndx1 < ndx2.
	LinkListSwap(list ListRef, ndx1, ndx2 int)

	// LinkListClear records removal of every element of a list.
	LinkListClear(list ListRef)

	// OnListViewDestroyed records that the live view over a list cell was
	// detached.
	OnListViewDestroyed(list ListRef)
}
