package mysql

import (
	"fmt"
	"time"
)

// Temporal is the protocol core's date/time/datetime value. It keeps
// the parsed time.Time plus whether a time component was present, so
// a DATE column round-trips without inventing a time-of-day and a
// TIME-only column (no date part) can still be formatted sensibly.
type Temporal struct {
	Time     time.Time
	HasDate  bool
	HasTime  bool
	Negative bool // only meaningful for a bare TIME value
}

func (t Temporal) String() string {
	switch {
	case t.HasDate && t.HasTime:
		return string(appendDateTimeDigits(nil, t.Time))
	case t.HasDate:
		return string(appendDateDigits(nil, t.Time))
	default:
		buf := make([]byte, 0, 9)
		if t.Negative {
			buf = append(buf, '-')
		}
		h := t.Time.Hour()
		buf = append(buf, digits10[h], digits01[h], ':')
		m := t.Time.Minute()
		buf = append(buf, digits10[m], digits01[m], ':')
		s := t.Time.Second()
		buf = append(buf, digits10[s], digits01[s])
		return string(buf)
	}
}

// appendDateDigits appends "YYYY-MM-DD" using the digits10/digits01
// lookup tables instead of strconv, the way
// _examples/julienschmidt-gmysql/connection.go's interpolateParams
// formats a time.Time for the wire.
func appendDateDigits(buf []byte, v time.Time) []byte {
	year := v.Year()
	year100, year1 := year/100, year%100
	month, day := int(v.Month()), v.Day()
	return append(buf,
		digits10[year100], digits01[year100],
		digits10[year1], digits01[year1],
		'-',
		digits10[month], digits01[month],
		'-',
		digits10[day], digits01[day],
	)
}

// appendDateTimeDigits appends "YYYY-MM-DD HH:MM:SS[.ffffff]",
// rendering a fractional second only when one is present.
func appendDateTimeDigits(buf []byte, v time.Time) []byte {
	buf = appendDateDigits(buf, v)
	hour, minute, second := v.Hour(), v.Minute(), v.Second()
	buf = append(buf, ' ',
		digits10[hour], digits01[hour],
		':',
		digits10[minute], digits01[minute],
		':',
		digits10[second], digits01[second],
	)
	if micro := v.Nanosecond() / 1000; micro != 0 {
		micro10000 := micro / 10000
		micro100 := micro / 100 % 100
		micro1 := micro % 100
		buf = append(buf, '.',
			digits10[micro10000], digits01[micro10000],
			digits10[micro100], digits01[micro100],
			digits10[micro1], digits01[micro1],
		)
	}
	return buf
}

// decodeBinaryTemporal decodes the 0/4/7/11-byte binary-protocol
// layout for DATE/TIME/DATETIME/TIMESTAMP columns (spec 4.3). data is
// the payload immediately following the lenenc length byte already
// consumed by the caller; n is that length.
func decodeBinaryTemporal(data []byte, n int, isTime bool) (Temporal, error) {
	if n == 0 {
		if isTime {
			return Temporal{HasTime: true}, nil
		}
		return Temporal{}, nil
	}
	if len(data) < n {
		return Temporal{}, newErr(KindDecodingError, "temporal: truncated value")
	}

	if isTime {
		return decodeBinaryTime(data, n)
	}
	return decodeBinaryDate(data, n)
}

func decodeBinaryDate(data []byte, n int) (Temporal, error) {
	if n < 4 {
		return Temporal{}, newErr(KindDecodingError, "temporal: date payload too short")
	}
	year := int(readUint16(data[0:2]))
	month := time.Month(data[2])
	day := int(data[3])

	var hour, minute, second, micro int
	hasTime := n > 4
	if hasTime {
		if n < 7 {
			return Temporal{}, newErr(KindDecodingError, "temporal: datetime payload too short")
		}
		hour = int(data[4])
		minute = int(data[5])
		second = int(data[6])
	}
	if n >= 11 {
		micro = int(readUint32(data[7:11]))
	}

	t := time.Date(year, month, day, hour, minute, second, micro*1000, time.UTC)
	return Temporal{Time: t, HasDate: true, HasTime: hasTime}, nil
}

func decodeBinaryTime(data []byte, n int) (Temporal, error) {
	if n < 8 {
		return Temporal{}, newErr(KindDecodingError, "temporal: time payload too short")
	}
	negative := data[0] != 0
	days := int(readUint32(data[1:5]))
	hour := int(data[5]) + days*24
	minute := int(data[6])
	second := int(data[7])
	var micro int
	if n >= 12 {
		micro = int(readUint32(data[8:12]))
	}

	base := time.Date(0, 1, 1, hour, minute, second, micro*1000, time.UTC)
	return Temporal{Time: base, HasTime: true, Negative: negative}, nil
}

// encodeBinaryTemporal appends the binary-protocol layout for t,
// choosing the shortest layout that round-trips it, mirroring the
// length/decimals rules convert.go's formatBinaryDateTime derives
// from on read.
func encodeBinaryTemporal(buf []byte, t Temporal) []byte {
	if !t.HasDate && !t.HasTime {
		return appendLengthEncodedInteger(buf, 0)
	}
	if t.HasTime && !t.HasDate {
		micro := t.Time.Nanosecond() / 1000
		length := 8
		if micro != 0 {
			length = 12
		}
		buf = appendLengthEncodedInteger(buf, uint64(length))
		sign := byte(0)
		if t.Negative {
			sign = 1
		}
		buf = append(buf, sign)
		buf = appendUint32(buf, 0) // days
		buf = append(buf, byte(t.Time.Hour()), byte(t.Time.Minute()), byte(t.Time.Second()))
		if micro != 0 {
			buf = appendUint32(buf, uint32(micro))
		}
		return buf
	}

	hour, min, sec := t.Time.Hour(), t.Time.Minute(), t.Time.Second()
	micro := t.Time.Nanosecond() / 1000
	length := 4
	if t.HasTime {
		length = 7
		if micro != 0 {
			length = 11
		}
	}
	buf = appendLengthEncodedInteger(buf, uint64(length))
	buf = appendUint16(buf, uint16(t.Time.Year()))
	buf = append(buf, byte(t.Time.Month()), byte(t.Time.Day()))
	if t.HasTime {
		buf = append(buf, byte(hour), byte(min), byte(sec))
		if micro != 0 {
			buf = appendUint32(buf, uint32(micro))
		}
	}
	return buf
}

func appendUint16(b []byte, v uint16) []byte { return append(b, byte(v), byte(v>>8)) }
func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// parseTextTemporal parses the text-protocol representation of a
// temporal column ("YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS[.ffffff]", or a
// bare "[-][H]HH:MM:SS[.ffffff]" TIME).
func parseTextTemporal(s string, typ fieldType) (Temporal, error) {
	switch typ {
	case fieldTypeDate, fieldTypeNewDate:
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Temporal{}, wrapErr(KindDecodingError, err, "parsing DATE %q", s)
		}
		return Temporal{Time: t, HasDate: true}, nil
	case fieldTypeTime:
		neg := false
		if len(s) > 0 && s[0] == '-' {
			neg = true
			s = s[1:]
		}
		var h, m, sec int
		var frac string
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
			return Temporal{}, wrapErr(KindDecodingError, err, "parsing TIME %q", s)
		}
		if dot := indexByte(s, '.'); dot >= 0 {
			frac = s[dot+1:]
		}
		micro := 0
		if frac != "" {
			fmt.Sscanf(frac, "%d", &micro)
		}
		t := time.Date(0, 1, 1, h, m, sec, micro*1000, time.UTC)
		return Temporal{Time: t, HasTime: true, Negative: neg}, nil
	default: // DATETIME / TIMESTAMP
		layout := "2006-01-02 15:04:05"
		if indexByte(s, '.') >= 0 {
			layout = "2006-01-02 15:04:05.999999"
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return Temporal{}, wrapErr(KindDecodingError, err, "parsing DATETIME %q", s)
		}
		return Temporal{Time: t, HasDate: true, HasTime: true}, nil
	}
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
