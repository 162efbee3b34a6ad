package mysql

// Column is the Column Definition record from spec section 3,
// decoded from a Column Definition 41 packet (spec 4.3). Grounded on
// _examples/julienschmidt-gmysql/packets.go readColumns, which reads
// the same eleven fields in the same order but only retains name,
// tableName, flags, fieldType and decimals; the rest are kept here
// too since callers of a general-purpose core (unlike a
// database/sql driver) reasonably want catalog/schema metadata.
type Column struct {
	Catalog  string
	Schema   string
	Table    string
	OrgTable string
	Name     string
	OrgName  string
	Charset  uint16
	Length   uint32
	Type     fieldType
	Flags    fieldFlag
	Decimals uint8
}

// encodingWidth classifies how a Column's values are laid out on the
// wire in the binary protocol (spec 3: "paired with its
// binary-encoding width class").
type encodingWidth int

const (
	widthFixedInt encodingWidth = iota
	widthFixedFloat
	widthLenencString
	widthLenencBytes
	widthTemporal
)

// width reports the binary-protocol encoding class for the column's
// field type, mirroring the switch in
// _examples/julienschmidt-gmysql/convert.go (*binaryRows).convert.
func (c Column) width() encodingWidth {
	switch c.Type {
	case fieldTypeTiny, fieldTypeShort, fieldTypeYear, fieldTypeInt24, fieldTypeLong, fieldTypeLongLong:
		return widthFixedInt
	case fieldTypeFloat, fieldTypeDouble:
		return widthFixedFloat
	case fieldTypeDate, fieldTypeNewDate, fieldTypeTime, fieldTypeTimestamp, fieldTypeDateTime:
		return widthTemporal
	case fieldTypeDecimal, fieldTypeNewDecimal, fieldTypeVarChar, fieldTypeBit,
		fieldTypeEnum, fieldTypeSet, fieldTypeTinyBLOB, fieldTypeMediumBLOB,
		fieldTypeLongBLOB, fieldTypeBLOB, fieldTypeVarString, fieldTypeString,
		fieldTypeGeometry, fieldTypeJSON:
		return widthLenencBytes
	default:
		return widthLenencBytes
	}
}

func (c Column) unsigned() bool { return c.Flags&flagUnsigned != 0 }

// parseColumnDefinition41 decodes one Column Definition 41 packet.
func parseColumnDefinition41(data []byte) (Column, error) {
	var col Column
	pos := 0

	read := func(label string) ([]byte, bool) {
		s, _, n, ok := readLengthEncodedString(data[pos:])
		if !ok {
			return nil, false
		}
		pos += n
		return s, true
	}

	var ok bool
	var b []byte
	if b, ok = read("catalog"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated catalog")
	}
	col.Catalog = string(b)
	if b, ok = read("schema"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated schema")
	}
	col.Schema = string(b)
	if b, ok = read("table"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated table")
	}
	col.Table = string(b)
	if b, ok = read("org_table"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated org_table")
	}
	col.OrgTable = string(b)
	if b, ok = read("name"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated name")
	}
	col.Name = string(b)
	if b, ok = read("org_name"); !ok {
		return col, newErr(KindParsingError, "column definition: truncated org_name")
	}
	col.OrgName = string(b)

	// fixed-length fields block: lenenc-int length-of-fields-below
	// (always 0x0c), then charset(2) length(4) type(1) flags(2) decimals(1) filler(2)
	if pos >= len(data) {
		return col, newErr(KindParsingError, "column definition: truncated fixed fields")
	}
	_, _, n, ok := readLengthEncodedInteger(data[pos:])
	if !ok {
		return col, newErr(KindParsingError, "column definition: truncated fixed-fields length")
	}
	pos += n

	if pos+10 > len(data) {
		return col, newErr(KindParsingError, "column definition: truncated fixed fields")
	}
	col.Charset = readUint16(data[pos : pos+2])
	col.Length = readUint32(data[pos+2 : pos+6])
	col.Type = fieldType(data[pos+6])
	col.Flags = fieldFlag(readUint16(data[pos+7 : pos+9]))
	col.Decimals = data[pos+9]
	pos += 10 + 2 // + filler

	return col, nil
}
