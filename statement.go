package mysql

// PreparedStatement is the result of COM_STMT_PREPARE: a server-side
// statement id plus the parameter and result column metadata the
// server reported for it (spec 4.5). Grounded on
// _examples/julienschmidt-gmysql/stmt.go's Stmt, generalized from a
// database/sql driver.Stmt into the protocol core's own type with
// explicit pre-send validation instead of leaving mismatched argument
// counts to surface as a server error.
type PreparedStatement struct {
	conn    *Conn
	id      uint32
	params  []Column
	columns []Column
	closed  bool
}

// NumParams reports how many parameter placeholders the statement
// declares.
func (stmt *PreparedStatement) NumParams() int { return len(stmt.params) }

// Columns reports the result set's column metadata, empty for
// statements that don't produce rows (e.g. an INSERT).
func (stmt *PreparedStatement) Columns() []Column { return stmt.columns }

// Bind validates values against the statement's declared parameter
// count and types before anything is sent to the server (spec 6
// expansion): a wrong count or a value whose kind doesn't match the
// declared parameter type is reported here, not as a server round
// trip or a silently truncated bind.
func (stmt *PreparedStatement) Bind(values ...Value) ([]Value, error) {
	if len(values) > len(stmt.params) {
		return nil, ErrTooManyParametersBound
	}
	if len(values) < len(stmt.params) {
		return nil, ErrNotEnoughParametersBound
	}
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		if expected := expectedKindFor(stmt.params[i]); !kindMatches(v.Kind, expected) {
			return nil, invalidTypeBoundErr(v.Kind.String(), expected)
		}
	}
	return values, nil
}

// expectedKindFor reports the Value kind a parameter's declared
// column type accepts, mirroring wireTypeFor/decodeBinaryValue's
// classification in the opposite direction.
func expectedKindFor(col Column) string {
	switch col.width() {
	case widthFixedInt:
		if col.unsigned() {
			return "uint"
		}
		return "int"
	case widthFixedFloat:
		return "float"
	case widthTemporal:
		return "temporal"
	default:
		switch col.Type {
		case fieldTypeNewDecimal, fieldTypeDecimal:
			return "decimal"
		default:
			return "string"
		}
	}
}

// kindMatches allows the string/bytes overlap that MySQL's own
// text-and-binary duality permits (a caller may bind either for a
// VARCHAR/BLOB parameter), and lets a decimal parameter accept a
// plain string.
func kindMatches(got ValueKind, expected string) bool {
	if got.String() == expected {
		return true
	}
	switch expected {
	case "string":
		return got == KindBytes
	case "decimal":
		return got == KindString
	}
	return false
}

// Execute binds values, issues COM_STMT_EXECUTE, and returns the
// resulting Rows cursor.
func (stmt *PreparedStatement) Execute(values ...Value) (*Rows, error) {
	if stmt.closed {
		return nil, ErrStatementClosed
	}
	bound, err := stmt.Bind(values...)
	if err != nil {
		return nil, err
	}
	return stmt.conn.executeStatement(stmt, bound)
}

// ExecuteOn runs Execute against a specific connection, failing with
// ErrStatementForeignConnection if conn did not prepare this
// statement (spec 4.5's ownership rule for pooled prepared
// statements).
func (stmt *PreparedStatement) ExecuteOn(conn *Conn, values ...Value) (*Rows, error) {
	if conn != stmt.conn {
		return nil, ErrStatementForeignConnection
	}
	return stmt.Execute(values...)
}

// Reset issues COM_STMT_RESET, discarding any buffered long-data and
// cursor state while keeping the statement open.
func (stmt *PreparedStatement) Reset() error {
	if stmt.closed {
		return ErrStatementClosed
	}
	return stmt.conn.ResetStatement(stmt.id)
}

// Close issues COM_STMT_CLOSE and marks the statement unusable.
func (stmt *PreparedStatement) Close() error {
	if stmt.closed {
		return nil
	}
	stmt.closed = true
	return stmt.conn.CloseStatement(stmt.id)
}

// buildComStmtExecute encodes a COM_STMT_EXECUTE packet: the
// statement id, a cursor flag (always CURSOR_TYPE_NO_CURSOR, as the
// protocol core doesn't implement server-side cursors), an
// iteration-count of 1, a NULL bitmap, a new-params-bound-flag byte,
// then each parameter's (type, value) pair (spec 4.3, section 6
// expansion). Grounded on
// _examples/julienschmidt-gmysql/stmt.go writeExecutePacket's overall
// shape, rewritten against the typed Value union instead of
// interface{} args.
func buildComStmtExecute(stmtID uint32, params []Column, values []Value) ([]byte, error) {
	const cursorTypeNoCursor = 0x00

	buf := make([]byte, 0, 16+len(values)*8)
	buf = append(buf, comStmtExecute)
	buf = appendUint32(buf, stmtID)
	buf = append(buf, cursorTypeNoCursor)
	buf = appendUint32(buf, 1) // iteration count

	if len(values) > 0 {
		maskLen := (len(values) + 7) / 8
		mask := make([]byte, maskLen)
		for i, v := range values {
			if v.IsNull() {
				mask[i/8] |= 1 << uint(i%8)
			}
		}
		buf = append(buf, mask...)
		buf = append(buf, 1) // new-params-bound-flag

		typeBuf := make([]byte, 0, len(values)*2)
		valueBuf := make([]byte, 0, len(values)*8)
		for _, v := range values {
			typ, unsigned := wireTypeFor(v)
			typeBuf = append(typeBuf, byte(typ))
			flag := byte(0)
			if unsigned {
				flag = 0x80
			}
			typeBuf = append(typeBuf, flag)

			if v.IsNull() {
				continue
			}
			var err error
			valueBuf, err = appendBinaryValue(valueBuf, v)
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, typeBuf...)
		buf = append(buf, valueBuf...)
	}

	return buf, nil
}

// wireTypeFor picks the COM_STMT_EXECUTE field type used to encode a
// bound Value, the client-side mirror of decodeBinaryValue.
func wireTypeFor(v Value) (typ fieldType, unsigned bool) {
	switch v.Kind {
	case KindNull:
		return fieldTypeNULL, false
	case KindInt:
		return fieldTypeLongLong, false
	case KindUint:
		return fieldTypeLongLong, true
	case KindFloat:
		return fieldTypeDouble, false
	case KindTemporal:
		return fieldTypeDateTime, false
	case KindDecimal:
		return fieldTypeNewDecimal, false
	case KindBytes:
		return fieldTypeBLOB, false
	default:
		return fieldTypeVarString, false
	}
}

func appendBinaryValue(buf []byte, v Value) ([]byte, error) {
	switch v.Kind {
	case KindInt:
		n, _ := v.Int64()
		return putUint64Append(buf, uint64(n)), nil
	case KindUint:
		n, _ := v.Uint64()
		return putUint64Append(buf, n), nil
	case KindFloat:
		f, _ := v.Float64()
		return putFloat64Append(buf, f), nil
	case KindTemporal:
		t, _ := v.Temporal()
		return encodeBinaryTemporal(buf, t), nil
	case KindDecimal:
		return appendLengthEncodedString(buf, []byte(v.String())), nil
	case KindBytes:
		return appendLengthEncodedString(buf, v.Bytes()), nil
	case KindString:
		return appendLengthEncodedString(buf, []byte(v.String())), nil
	default:
		return nil, invalidBindingErr(v.Kind.String())
	}
}

func putUint64Append(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	putUint64(b, v)
	return append(buf, b...)
}

func putFloat64Append(buf []byte, v float64) []byte {
	b := make([]byte, 8)
	putFloat64(b, v)
	return append(buf, b...)
}
