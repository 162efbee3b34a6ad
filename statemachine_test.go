package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnDefPacket(name string, typ fieldType) []byte {
	var buf []byte
	buf = appendLengthEncodedString(buf, []byte("def"))  // catalog
	buf = appendLengthEncodedString(buf, nil)             // schema
	buf = appendLengthEncodedString(buf, nil)             // table
	buf = appendLengthEncodedString(buf, nil)             // org_table
	buf = appendLengthEncodedString(buf, []byte(name))    // name
	buf = appendLengthEncodedString(buf, []byte(name))    // org_name
	buf = appendLengthEncodedInteger(buf, 0x0c)
	buf = appendUint16(buf, defaultCharset)
	buf = appendUint32(buf, 100)
	buf = append(buf, byte(typ))
	buf = appendUint16(buf, 0)
	buf = append(buf, 0)    // decimals
	buf = append(buf, 0, 0) // filler
	return buf
}

func okPacketBytes(affected, insertID uint64, status statusFlag) []byte {
	buf := []byte{iOK}
	buf = appendLengthEncodedInteger(buf, affected)
	buf = appendLengthEncodedInteger(buf, insertID)
	buf = appendUint16(buf, uint16(status))
	buf = appendUint16(buf, 0)
	return buf
}

// TestStateMachineSelectFlow exercises the S1-shaped sequence: column
// count, one column definition, EOF, one text row, EOF.
func TestStateMachineSelectFlow(t *testing.T) {
	m := newMachine(0) // DEPRECATE_EOF not negotiated
	require.NoError(t, m.beginTextCommand(false))
	assert.Equal(t, StateTextAwaitColumnCount, m.state)

	countPkt := appendLengthEncodedInteger(nil, 1)
	evs := m.step(countPkt)
	assert.Empty(t, evs)
	assert.Equal(t, StateTextColumns, m.state)

	evs = m.step(columnDefPacket("@@version", fieldTypeVarChar))
	require.Len(t, evs, 1)
	assert.Equal(t, EventColumnMeta, evs[0].Kind)
	assert.Equal(t, StateTextAwaitColumnsEOF, m.state)

	evs = m.step([]byte{iEOF, 0, 0, 0, 0})
	assert.Empty(t, evs)
	assert.Equal(t, StateTextRows, m.state)

	rowPkt := appendLengthEncodedString(nil, []byte("8.0.32"))
	evs = m.step(rowPkt)
	require.Len(t, evs, 1)
	require.Equal(t, EventRow, evs[0].Kind)
	v, ok := evs[0].Row.Get("@@version")
	require.True(t, ok)
	assert.Equal(t, "8.0.32", v.String())

	evs = m.step([]byte{iEOF, 0, 0, 0, 0})
	require.Len(t, evs, 1)
	assert.Equal(t, EventEnd, evs[0].Kind)
	assert.Equal(t, StateIdle, m.state)
}

// TestStateMachineDeprecateEOFUsesOKTerminator verifies that with
// DEPRECATE_EOF negotiated, the column list and row stream both end
// on an OK-shaped packet rather than a real EOF.
func TestStateMachineDeprecateEOFUsesOKTerminator(t *testing.T) {
	m := newMachine(clientDeprecateEOF)
	require.NoError(t, m.beginTextCommand(false))

	m.step(appendLengthEncodedInteger(nil, 1))
	m.step(columnDefPacket("x", fieldTypeLong))
	assert.Equal(t, StateTextRows, m.state, "no EOF stage expected once columns are fully seen")

	evs := m.step(okPacketBytes(3, 7, statusAutocommit))
	require.Len(t, evs, 1)
	require.Equal(t, EventEnd, evs[0].Kind)
	assert.EqualValues(t, 3, evs[0].End.AffectedRows)
	assert.EqualValues(t, 7, evs[0].End.LastInsertID)
	assert.Equal(t, StateIdle, m.state)
}

// TestStateMachineInsertFlow exercises S2: an immediate OK with no
// column phase at all.
func TestStateMachineInsertFlow(t *testing.T) {
	m := newMachine(0)
	require.NoError(t, m.beginTextCommand(false))

	evs := m.step(okPacketBytes(2, 42, statusAutocommit))
	require.Len(t, evs, 1)
	assert.Equal(t, EventEnd, evs[0].Kind)
	assert.EqualValues(t, 2, evs[0].End.AffectedRows)
	assert.EqualValues(t, 42, evs[0].End.LastInsertID)
	assert.Equal(t, StateIdle, m.state)
}

// TestStateMachineTotalityRejectsUnexpectedPacket ensures an input
// that doesn't fit the current state's expected shape is reported as
// an error and the connection is never left silently stuck.
func TestStateMachineTotalityRejectsUnexpectedPacket(t *testing.T) {
	m := newMachine(0)
	evs := m.step([]byte{0x00})
	require.Len(t, evs, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.Equal(t, StateClosed, m.state)
}

func TestStateMachineServerErrorDuringQueryReturnsToIdle(t *testing.T) {
	m := newMachine(0)
	require.NoError(t, m.beginTextCommand(false))

	errPkt := []byte{iERR, 0x19, 0x04, '#'}
	errPkt = append(errPkt, []byte("42000")...)
	errPkt = append(errPkt, []byte("Unknown column")...)

	evs := m.step(errPkt)
	require.Len(t, evs, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.Equal(t, StateIdle, m.state)
}
