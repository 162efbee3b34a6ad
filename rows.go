package mysql

// Rows is a caller-pulled cursor over a result set (spec section 5:
// "callers pull rows on demand; canceling mid-stream must leave the
// connection Idle (drained) or Closed, never mixed"). Grounded on
// _examples/julienschmidt-gmysql/rows.go's textRows/binaryRows,
// collapsed into one type since both protocols now share the same
// state-machine states and differ only in how a row's bytes are
// decoded (handled already by the state machine via Conn.m.binary).
type Rows struct {
	conn    *Conn
	columns []Column
	row     Row
	end     EndInfo
	err     error
	done    bool
}

func newRows(conn *Conn) *Rows {
	return &Rows{conn: conn}
}

// Next advances to the next row, returning false at the end of the
// result set or on error; check Err to distinguish the two.
func (rows *Rows) Next() bool {
	if rows.done {
		return false
	}
	for {
		data, err := rows.conn.readPacket()
		if err != nil {
			rows.err = err
			rows.finish()
			return false
		}
		for _, ev := range rows.conn.m.step(data) {
			switch ev.Kind {
			case EventColumnMeta:
				rows.columns = append(rows.columns, ev.Column)
			case EventRow:
				rows.row = ev.Row
				return true
			case EventEnd:
				rows.end = ev.End
				rows.finish()
				return false
			case EventError:
				rows.err = ev.Err
				rows.finish()
				return false
			}
		}
	}
}

// Row returns the row most recently produced by Next.
func (rows *Rows) Row() Row { return rows.row }

// Columns returns the result set's column metadata. It is complete
// only once Next has returned at least once (or false with no error).
func (rows *Rows) Columns() []Column { return rows.columns }

// End returns the {affected_rows, last_insert_id} the result set
// completed with, valid once Next has returned false with Err() nil.
func (rows *Rows) End() EndInfo { return rows.end }

// Err reports the terminal error, if any, after Next returns false.
func (rows *Rows) Err() error { return rows.err }

func (rows *Rows) finish() {
	rows.done = true
	rows.conn.releaseBusy()
}

// Close drains any unread packets belonging to this result set so the
// connection returns to Idle rather than being left mid-stream for
// the next command to misinterpret (spec section 5's drain-on-cancel
// requirement). It is safe to call after Next has already exhausted
// the result set.
func (rows *Rows) Close() error {
	if rows.done {
		return rows.err
	}
	for {
		data, err := rows.conn.readPacket()
		if err != nil {
			rows.err = err
			break
		}
		terminal := false
		for _, ev := range rows.conn.m.step(data) {
			switch ev.Kind {
			case EventEnd:
				rows.end = ev.End
				terminal = true
			case EventError:
				rows.err = ev.Err
				terminal = true
			}
		}
		if terminal {
			break
		}
	}
	rows.finish()
	return rows.err
}
