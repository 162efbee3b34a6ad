package mysql

// This file is the Connection State Machine from spec 4.4: a Mealy
// machine whose input is an inbound packet (already framed and
// sequence-checked by packet.go) and whose output is a typed Event.
// It is kept free of I/O so the state table itself stays unit
// testable against canned packets (statemachine_test.go) independent
// of a real transport; connection.go supplies the packets by calling
// conn.readPacket() in a loop and feeding each one to step().

// State names the connection's current position in spec 4.4's table.
type State int

const (
	StateHSAwaitGreeting State = iota
	StateHSAwaitAuthResult
	StateIdle
	StateTextAwaitColumnCount
	StateTextColumns
	StateTextAwaitColumnsEOF
	StateTextRows
	StateStmtAwaitPrepareOK
	StateStmtParams
	StateStmtParamsEOF
	StateStmtCols
	StateStmtColsEOF
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHSAwaitGreeting:
		return "HS/AwaitGreeting"
	case StateHSAwaitAuthResult:
		return "HS/AwaitAuthResult"
	case StateIdle:
		return "Idle"
	case StateTextAwaitColumnCount:
		return "Text/AwaitColumnCount"
	case StateTextColumns:
		return "Text/Columns"
	case StateTextAwaitColumnsEOF:
		return "Text/AwaitColumnsEof"
	case StateTextRows:
		return "Text/Rows"
	case StateStmtAwaitPrepareOK:
		return "Stmt/AwaitPrepareOK"
	case StateStmtParams:
		return "Stmt/Params"
	case StateStmtParamsEOF:
		return "Stmt/ParamsEof"
	case StateStmtCols:
		return "Stmt/Cols"
	case StateStmtColsEOF:
		return "Stmt/ColsEof"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// EventKind tags the typed events the machine emits to the caller
// (spec 4.4: "ColumnMeta, Row, End{...}, Error").
type EventKind int

const (
	EventColumnMeta EventKind = iota
	EventRow
	EventEnd
	EventError
	EventHandshake
	EventPreparedStatement
)

// EndInfo carries the final {affected_rows, last_insert_id} a command
// completes with.
type EndInfo struct {
	AffectedRows uint64
	LastInsertID uint64
	Status       statusFlag
	Warnings     uint16
}

// Event is one output of step().
type Event struct {
	Kind      EventKind
	Column    Column
	Row       Row
	End       EndInfo
	Err       error
	Handshake Handshake
	Statement preparedMeta
}

// preparedMeta is the result of a completed COM_STMT_PREPARE exchange.
type preparedMeta struct {
	id      uint32
	params  []Column
	columns []Column
}

// machine holds the mutable state the transition table needs beyond
// the State enum itself: how many columns remain to be read, whether
// the in-progress result set is the binary protocol, and the
// accumulated column list for the command in flight.
type machine struct {
	state        State
	caps         capabilityFlag
	binary       bool
	columns      []Column
	columnsSeen  int
	columnsTotal int

	// prepare-specific accumulation
	prepID      uint32
	numParams   int
	numColumns  int
	params      []Column
	prepColumns []Column
}

func newMachine(caps capabilityFlag) *machine {
	return &machine{state: StateHSAwaitGreeting, caps: caps}
}

func (m *machine) deprecateEOF() bool { return m.caps&clientDeprecateEOF != 0 }

// errEvent is the totality backstop: every (state, packet) pair this
// switch doesn't explicitly recognize falls through to here, so no
// input is ever silently dropped (spec 8, property 5).
func errEvent(msg string) []Event {
	return []Event{{Kind: EventError, Err: newErr(KindUnexpectedResponse, msg)}}
}

// onHandshake processes the server's greeting. Returns the Handshake
// event plus the HandshakeResponse41 the caller should send.
func (m *machine) onHandshake(data []byte) (Event, error) {
	if m.state != StateHSAwaitGreeting {
		return Event{}, newErr(KindUnexpectedResponse, "handshake packet outside HS/AwaitGreeting")
	}
	if len(data) > 0 && data[0] == iERR {
		err := parseERR(data)
		m.state = StateClosed
		return Event{Kind: EventError, Err: err}, nil
	}
	hs, err := parseHandshakeV10(data)
	if err != nil {
		m.state = StateClosed
		return Event{}, err
	}
	m.state = StateHSAwaitAuthResult
	return Event{Kind: EventHandshake, Handshake: hs}, nil
}

// onAuthResult processes the server's reply to HandshakeResponse41:
// OK resolves the connection, ERR closes it (spec 4.4).
func (m *machine) onAuthResult(data []byte) (Event, error) {
	if m.state != StateHSAwaitAuthResult {
		return Event{}, newErr(KindUnexpectedResponse, "auth result outside HS/AwaitAuthResult")
	}
	if len(data) == 0 {
		m.state = StateClosed
		return Event{}, newErr(KindInvalidHandshake, "empty auth result")
	}
	switch data[0] {
	case iOK:
		ok, err := parseOK(data)
		if err != nil {
			m.state = StateClosed
			return Event{}, err
		}
		m.state = StateIdle
		return Event{Kind: EventEnd, End: EndInfo{AffectedRows: ok.affectedRows, LastInsertID: ok.lastInsertID, Status: ok.status, Warnings: ok.warnings}}, nil
	case iERR:
		m.state = StateClosed
		return Event{Kind: EventError, Err: parseERR(data)}, nil
	default:
		m.state = StateClosed
		return Event{}, newErr(KindInvalidHandshake, "unexpected byte in auth result")
	}
}

// beginTextCommand transitions Idle -> Text/AwaitColumnCount for a
// COM_QUERY or (binary=true) the result-set phase of
// COM_STMT_EXECUTE, which per spec 4.4 "reuses the Text pathway".
func (m *machine) beginTextCommand(binary bool) error {
	if m.state != StateIdle {
		return ErrConnectionInUse
	}
	m.state = StateTextAwaitColumnCount
	m.binary = binary
	m.columns = nil
	m.columnsSeen = 0
	m.columnsTotal = 0
	return nil
}

func (m *machine) beginStmtPrepare() error {
	if m.state != StateIdle {
		return ErrConnectionInUse
	}
	m.state = StateStmtAwaitPrepareOK
	m.params = nil
	m.prepColumns = nil
	return nil
}

// step feeds one inbound packet to the machine and returns the
// resulting events. A packet that doesn't match any transition for
// the current state is an error (the totality backstop above), never
// a silent no-op.
func (m *machine) step(data []byte) []Event {
	switch m.state {
	case StateTextAwaitColumnCount:
		return m.stepAwaitColumnCount(data)
	case StateTextColumns:
		return m.stepColumns(data)
	case StateTextAwaitColumnsEOF:
		return m.stepColumnsEOF(data)
	case StateTextRows:
		return m.stepRows(data)
	case StateStmtAwaitPrepareOK:
		return m.stepPrepareOK(data)
	case StateStmtParams:
		return m.stepParams(data)
	case StateStmtParamsEOF:
		return m.stepParamsEOF(data)
	case StateStmtCols:
		return m.stepCols(data)
	case StateStmtColsEOF:
		return m.stepColsEOF(data)
	default:
		m.state = StateClosed
		return errEvent("packet received in state " + m.state.String())
	}
}

func (m *machine) stepAwaitColumnCount(data []byte) []Event {
	if len(data) == 0 {
		m.state = StateClosed
		return errEvent("empty result set header")
	}
	switch data[0] {
	case iOK:
		ok, err := parseOK(data)
		if err != nil {
			m.state = StateClosed
			return []Event{{Kind: EventError, Err: err}}
		}
		m.state = StateIdle
		return []Event{{Kind: EventEnd, End: EndInfo{AffectedRows: ok.affectedRows, LastInsertID: ok.lastInsertID, Status: ok.status, Warnings: ok.warnings}}}
	case iERR:
		m.state = StateIdle
		return []Event{{Kind: EventError, Err: parseERR(data)}}
	default:
		n, err := readColumnCount(data)
		if err != nil {
			m.state = StateClosed
			return []Event{{Kind: EventError, Err: err}}
		}
		m.columnsTotal = n
		m.columnsSeen = 0
		m.columns = make([]Column, 0, n)
		m.state = StateTextColumns
		return nil
	}
}

func (m *machine) stepColumns(data []byte) []Event {
	col, err := parseColumnDefinition41(data)
	if err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	m.columns = append(m.columns, col)
	m.columnsSeen++
	ev := Event{Kind: EventColumnMeta, Column: col}
	if m.columnsSeen < m.columnsTotal {
		return []Event{ev}
	}
	if m.deprecateEOF() {
		m.state = StateTextRows
	} else {
		m.state = StateTextAwaitColumnsEOF
	}
	return []Event{ev}
}

func (m *machine) stepColumnsEOF(data []byte) []Event {
	if !isEOFHeader(data) {
		m.state = StateClosed
		return errEvent("expected EOF after column definitions")
	}
	if _, err := parseEOF(data); err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	m.state = StateTextRows
	return nil
}

func (m *machine) stepRows(data []byte) []Event {
	if isResultSetTerminator(data, m.deprecateEOF()) {
		end, err := parseResultSetEnd(data, m.deprecateEOF())
		if err != nil {
			m.state = StateClosed
			return []Event{{Kind: EventError, Err: err}}
		}
		m.state = StateIdle
		return []Event{{Kind: EventEnd, End: end}}
	}
	if len(data) > 0 && data[0] == iERR {
		m.state = StateIdle
		return []Event{{Kind: EventError, Err: parseERR(data)}}
	}

	var values []Value
	var err error
	if m.binary {
		values, err = parseBinaryRow(data, m.columns)
	} else {
		values, err = parseTextRow(data, m.columns)
	}
	if err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	return []Event{{Kind: EventRow, Row: newRow(m.columns, values)}}
}

// isResultSetTerminator reports whether data is the packet that ends
// a row stream: a real EOF, or (when DEPRECATE_EOF is negotiated) an
// OK packet whose header byte is 0xfe (spec 4.3).
func isResultSetTerminator(data []byte, deprecateEOF bool) bool {
	if len(data) == 0 {
		return false
	}
	if !deprecateEOF {
		return data[0] == iEOF
	}
	return data[0] == iEOF
}

func parseResultSetEnd(data []byte, deprecateEOF bool) (EndInfo, error) {
	if deprecateEOF {
		ok, err := parseOK(data)
		if err != nil {
			return EndInfo{}, err
		}
		return EndInfo{AffectedRows: ok.affectedRows, LastInsertID: ok.lastInsertID, Status: ok.status, Warnings: ok.warnings}, nil
	}
	e, err := parseEOF(data)
	if err != nil {
		return EndInfo{}, err
	}
	return EndInfo{Status: e.status, Warnings: e.warnings}, nil
}

func (m *machine) stepPrepareOK(data []byte) []Event {
	if len(data) > 0 && data[0] == iERR {
		m.state = StateIdle
		return []Event{{Kind: EventError, Err: parseERR(data)}}
	}
	p, err := parsePrepareOK(data)
	if err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	m.prepID = p.stmtID
	m.numParams = int(p.numParams)
	m.numColumns = int(p.numColumns)
	m.params = make([]Column, 0, m.numParams)
	m.prepColumns = make([]Column, 0, m.numColumns)

	if m.numParams > 0 {
		m.state = StateStmtParams
		return nil
	}
	if m.numColumns > 0 {
		m.state = StateStmtCols
		return nil
	}
	m.state = StateIdle
	return []Event{{Kind: EventPreparedStatement, Statement: preparedMeta{id: m.prepID}}}
}

func (m *machine) stepParams(data []byte) []Event {
	col, err := parseColumnDefinition41(data)
	if err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	m.params = append(m.params, col)
	if len(m.params) < m.numParams {
		return nil
	}
	if m.deprecateEOF() {
		return m.afterParams()
	}
	m.state = StateStmtParamsEOF
	return nil
}

func (m *machine) stepParamsEOF(data []byte) []Event {
	if !isEOFHeader(data) {
		m.state = StateClosed
		return errEvent("expected EOF after parameter definitions")
	}
	return m.afterParams()
}

func (m *machine) afterParams() []Event {
	if m.numColumns > 0 {
		m.state = StateStmtCols
		return nil
	}
	m.state = StateIdle
	return []Event{{Kind: EventPreparedStatement, Statement: preparedMeta{id: m.prepID, params: m.params}}}
}

func (m *machine) stepCols(data []byte) []Event {
	col, err := parseColumnDefinition41(data)
	if err != nil {
		m.state = StateClosed
		return []Event{{Kind: EventError, Err: err}}
	}
	m.prepColumns = append(m.prepColumns, col)
	if len(m.prepColumns) < m.numColumns {
		return nil
	}
	if m.deprecateEOF() {
		return m.afterCols()
	}
	m.state = StateStmtColsEOF
	return nil
}

func (m *machine) stepColsEOF(data []byte) []Event {
	if !isEOFHeader(data) {
		m.state = StateClosed
		return errEvent("expected EOF after result column definitions")
	}
	return m.afterCols()
}

func (m *machine) afterCols() []Event {
	m.state = StateIdle
	return []Event{{Kind: EventPreparedStatement, Statement: preparedMeta{id: m.prepID, params: m.params, columns: m.prepColumns}}}
}
