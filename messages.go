package mysql

import (
	"github.com/shopspring/decimal"
)

// okPacket is the generic-response OK payload (spec 4.3). Grounded on
// _examples/julienschmidt-gmysql/packets.go handleOkPacket, which
// reads the same three lenenc/fixed fields in the same order but
// folds the result straight into Conn fields instead of returning a
// value — kept separate here so the state machine can emit it as an
// End event regardless of which command produced it.
type okPacket struct {
	affectedRows uint64
	lastInsertID uint64
	status       statusFlag
	warnings     uint16
}

func parseOK(data []byte) (okPacket, error) {
	var ok okPacket
	if len(data) < 1 || data[0] != iOK {
		return ok, newErr(KindInvalidPacket, "not an OK packet")
	}
	pos := 1

	affected, _, n, ok2 := readLengthEncodedInteger(data[pos:])
	if !ok2 {
		return ok, newErr(KindInvalidPacket, "OK packet: truncated affected_rows")
	}
	ok.affectedRows = affected
	pos += n

	insertID, _, n, ok2 := readLengthEncodedInteger(data[pos:])
	if !ok2 {
		return ok, newErr(KindInvalidPacket, "OK packet: truncated last_insert_id")
	}
	ok.lastInsertID = insertID
	pos += n

	if pos+4 > len(data) {
		return ok, newErr(KindInvalidPacket, "OK packet: truncated status/warnings")
	}
	ok.status = statusFlag(readUint16(data[pos : pos+2]))
	ok.warnings = readUint16(data[pos+2 : pos+4])
	return ok, nil
}

// isEOFHeader recognizes an EOF-shaped packet. When DEPRECATE_EOF is
// negotiated, the server sends an OK packet with header 0xfe instead
// (spec 4.3); the discriminator here is the packet's declared length,
// which an EOF is always < 9 bytes and an OK-as-terminator generally
// is not once it carries real affected-rows/warning data, but the
// authoritative signal is still the negotiated capability, checked by
// the caller (the state machine) before calling this.
func isEOFHeader(data []byte) bool {
	return len(data) > 0 && data[0] == iEOF && len(data) < 9
}

type eofPacket struct {
	warnings uint16
	status   statusFlag
}

func parseEOF(data []byte) (eofPacket, error) {
	var e eofPacket
	if !isEOFHeader(data) {
		return e, newErr(KindInvalidPacket, "not an EOF packet")
	}
	if len(data) == 1 {
		return e, nil
	}
	if len(data) < 5 {
		return e, newErr(KindInvalidPacket, "EOF packet: truncated")
	}
	e.warnings = readUint16(data[1:3])
	e.status = statusFlag(readUint16(data[3:5]))
	return e, nil
}

// parseERR decodes an ERR packet into a ServerError (spec 4.3, 7).
func parseERR(data []byte) *Error {
	if len(data) < 3 || data[0] != iERR {
		return newErr(KindInvalidPacket, "not an ERR packet")
	}
	code := readUint16(data[1:3])
	pos := 3
	sqlState := ""
	if len(data) > 3 && data[3] == '#' && len(data) >= 9 {
		sqlState = string(data[4:9])
		pos = 9
	}
	message := ""
	if pos <= len(data) {
		message = string(data[pos:])
	}
	return serverErr(code, sqlState, message)
}

// readColumnCount reads the lenenc-int column count that precedes a
// result set, per the ProtocolText::Resultset header.
func readColumnCount(data []byte) (int, error) {
	n, _, _, ok := readLengthEncodedInteger(data)
	if !ok {
		return 0, newErr(KindInvalidPacket, "truncated column count")
	}
	return int(n), nil
}

// parseTextRow decodes a ProtocolText::ResultsetRow: each column is a
// lenenc-string, or the single byte 0xfb for SQL NULL (spec 4.3).
func parseTextRow(data []byte, columns []Column) ([]Value, error) {
	values := make([]Value, len(columns))
	pos := 0
	for i, col := range columns {
		raw, isNull, n, ok := readLengthEncodedString(data[pos:])
		if !ok {
			return nil, newErr(KindParsingError, "text row: truncated column")
		}
		pos += n
		if isNull {
			values[i] = NullValue()
			continue
		}
		v, err := textValueForColumn(col, raw)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func textValueForColumn(col Column, raw []byte) (Value, error) {
	switch col.Type {
	case fieldTypeDate, fieldTypeNewDate, fieldTypeTime, fieldTypeTimestamp, fieldTypeDateTime:
		t, err := parseTextTemporal(string(raw), col.Type)
		if err != nil {
			return Value{}, err
		}
		return TemporalValue(t), nil
	case fieldTypeDecimal, fieldTypeNewDecimal:
		d, err := decimal.NewFromString(string(raw))
		if err != nil {
			return StringValue(string(raw)), nil
		}
		return DecimalValue(d), nil
	default:
		return StringValue(string(raw)), nil
	}
}

// parseBinaryRow decodes a COM_STMT_EXECUTE binary result row (spec
// 4.3): byte 0 = 0x00, a NULL-bitmap of ceil((n+2)/8) bytes at offset
// 1 with bit index i+2 selecting column i, then each non-null column
// encoded per its type. Grounded on
// _examples/julienschmidt-gmysql/convert.go (*binaryRows).convert and
// readRow for the bitmap/header framing.
func parseBinaryRow(data []byte, columns []Column) ([]Value, error) {
	if len(data) < 1 || data[0] != iOK {
		return nil, newErr(KindInvalidPacket, "binary row: bad header byte")
	}
	maskLen := (len(columns) + 2 + 7) / 8
	if 1+maskLen > len(data) {
		return nil, newErr(KindParsingError, "binary row: truncated null bitmap")
	}
	nullMask := data[1 : 1+maskLen]
	pos := 1 + maskLen

	values := make([]Value, len(columns))
	for i, col := range columns {
		bit := uint(i + 2)
		if (nullMask[bit/8]>>(bit%8))&1 == 1 {
			values[i] = NullValue()
			continue
		}

		v, n, err := decodeBinaryValue(data[pos:], col)
		if err != nil {
			return nil, err
		}
		values[i] = v
		pos += n
	}
	return values, nil
}

func decodeBinaryValue(data []byte, col Column) (Value, int, error) {
	switch col.Type {
	case fieldTypeTiny:
		if len(data) < 1 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated TINY")
		}
		if col.unsigned() {
			return UintValue(uint64(data[0])), 1, nil
		}
		return IntValue(int64(int8(data[0]))), 1, nil

	case fieldTypeShort, fieldTypeYear:
		if len(data) < 2 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated SHORT")
		}
		u := readUint16(data[:2])
		if col.unsigned() {
			return UintValue(uint64(u)), 2, nil
		}
		return IntValue(int64(int16(u))), 2, nil

	case fieldTypeInt24, fieldTypeLong:
		if len(data) < 4 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated LONG")
		}
		u := readUint32(data[:4])
		if col.unsigned() {
			return UintValue(uint64(u)), 4, nil
		}
		return IntValue(int64(int32(u))), 4, nil

	case fieldTypeLongLong:
		if len(data) < 8 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated LONGLONG")
		}
		u := readUint64(data[:8])
		if col.unsigned() {
			return UintValue(u), 8, nil
		}
		return IntValue(int64(u)), 8, nil

	case fieldTypeFloat:
		if len(data) < 4 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated FLOAT")
		}
		return FloatValue(float64(readFloat32(data[:4]))), 4, nil

	case fieldTypeDouble:
		if len(data) < 8 {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated DOUBLE")
		}
		return FloatValue(readFloat64(data[:8])), 8, nil

	case fieldTypeDate, fieldTypeNewDate, fieldTypeDateTime, fieldTypeTimestamp:
		length, _, hn, ok := readLengthEncodedInteger(data)
		if !ok {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated temporal length")
		}
		t, err := decodeBinaryTemporal(data[hn:], int(length), false)
		if err != nil {
			return Value{}, 0, err
		}
		return TemporalValue(t), hn + int(length), nil

	case fieldTypeTime:
		length, _, hn, ok := readLengthEncodedInteger(data)
		if !ok {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated time length")
		}
		t, err := decodeBinaryTemporal(data[hn:], int(length), true)
		if err != nil {
			return Value{}, 0, err
		}
		return TemporalValue(t), hn + int(length), nil

	case fieldTypeDecimal, fieldTypeNewDecimal, fieldTypeVarChar, fieldTypeBit,
		fieldTypeEnum, fieldTypeSet, fieldTypeTinyBLOB, fieldTypeMediumBLOB,
		fieldTypeLongBLOB, fieldTypeBLOB, fieldTypeVarString, fieldTypeString,
		fieldTypeGeometry, fieldTypeJSON:
		raw, isNull, n, ok := readLengthEncodedString(data)
		if !ok {
			return Value{}, 0, newErr(KindParsingError, "binary row: truncated string column")
		}
		if isNull {
			return NullValue(), n, nil
		}
		if col.Type == fieldTypeDecimal || col.Type == fieldTypeNewDecimal {
			if d, err := decimal.NewFromString(string(raw)); err == nil {
				return DecimalValue(d), n, nil
			}
		}
		if col.Flags&flagBinary != 0 {
			return BytesValue(append([]byte{}, raw...)), n, nil
		}
		return StringValue(string(raw)), n, nil

	default:
		return Value{}, 0, newErr(KindDecodingError, "unknown field type in binary row")
	}
}

// -- command builders --------------------------------------------------

func buildComQuery(query string) []byte {
	buf := make([]byte, 0, 1+len(query))
	buf = append(buf, comQuery)
	return append(buf, query...)
}

func buildComStmtPrepare(query string) []byte {
	buf := make([]byte, 0, 1+len(query))
	buf = append(buf, comStmtPrepare)
	return append(buf, query...)
}

func buildComStmtClose(stmtID uint32) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, comStmtClose)
	return appendUint32(buf, stmtID)
}

func buildComStmtReset(stmtID uint32) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, comStmtReset)
	return appendUint32(buf, stmtID)
}

func buildComQuit() []byte { return []byte{comQuit} }
func buildComPing() []byte { return []byte{comPing} }

// prepareOKPacket is COM_STMT_PREPARE's OK-shaped reply (spec 4.3).
type prepareOKPacket struct {
	stmtID       uint32
	numColumns   uint16
	numParams    uint16
	warningCount uint16
}

func parsePrepareOK(data []byte) (prepareOKPacket, error) {
	var p prepareOKPacket
	if len(data) < 12 || data[0] != iOK {
		return p, newErr(KindInvalidPacket, "not a COM_STMT_PREPARE_OK packet")
	}
	p.stmtID = readUint32(data[1:5])
	p.numColumns = readUint16(data[5:7])
	p.numParams = readUint16(data[7:9])
	// data[9] filler
	p.warningCount = readUint16(data[10:12])
	return p, nil
}
