package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/pkg/types"
)

// recorder is an in-memory replication sink for tests. Each event is
// flattened to a readable string so expectations stay compact.
type recorder struct {
	events []string
}

var _ types.Replication = (*recorder)(nil)

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) SetLink(table types.TableID, col types.ColID, row, target types.RowID) {
	r.add("set_link t%d c%d r%d -> %d", table, col, row, target)
}

func (r *recorder) LinkListInsert(list types.ListRef, ndx int, target types.RowID) {
	r.add("list_insert t%d c%d r%d [%d] -> %d", list.Table, list.Col, list.Row, ndx, target)
}

func (r *recorder) LinkListSet(list types.ListRef, ndx int, target types.RowID) {
	r.add("list_set t%d c%d r%d [%d] -> %d", list.Table, list.Col, list.Row, ndx, target)
}

func (r *recorder) LinkListErase(list types.ListRef, ndx int) {
	r.add("list_erase t%d c%d r%d [%d]", list.Table, list.Col, list.Row, ndx)
}

func (r *recorder) LinkListNullify(list types.ListRef, ndx int) {
	r.add("list_nullify t%d c%d r%d [%d]", list.Table, list.Col, list.Row, ndx)
}

func (r *recorder) LinkListMove(list types.ListRef, from, to int) {
	r.add("list_move t%d c%d r%d %d -> %d", list.Table, list.Col, list.Row, from, to)
}

func (r *recorder) LinkListSwap(list types.ListRef, ndx1, ndx2 int) {
	r.add("list_swap t%d c%d r%d %d,%d", list.Table, list.Col, list.Row, ndx1, ndx2)
}

func (r *recorder) LinkListClear(list types.ListRef) {
	r.add("list_clear t%d c%d r%d", list.Table, list.Col, list.Row)
}

func (r *recorder) OnListViewDestroyed(list types.ListRef) {
	r.add("view_destroyed t%d c%d r%d", list.Table, list.Col, list.Row)
}
