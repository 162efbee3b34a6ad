// Package mysql implements the core of a MySQL/MariaDB wire protocol
// client: packet framing, the handshake/query/prepared-statement state
// machine, and a connection pool. SQL generation, row-to-struct
// decoding, CLI tooling and DSN parsing live outside this package.
package mysql

const (
	minProtocolVersion = 10
	maxPacketSize       = 1<<24 - 1 // 16MiB - 1, largest single frame
	defaultCharset      = 0x21      // utf8_general_ci
	defaultPort         = 3306

	authNativePassword   = "mysql_native_password"
	authCachingSHA2      = "caching_sha2_password"
	authSHA256Password   = "sha256_password"
)

// packet indicator bytes, first byte of most server responses.
const (
	iOK          byte = 0x00
	iAuthMoreData byte = 0x01
	iLocalInFile byte = 0xfb
	iEOF         byte = 0xfe
	iERR         byte = 0xff
)

// capability flags, see
// https://dev.mysql.com/doc/dev/mysql-server/latest/group__group__cs__capabilities__flags.html
type capabilityFlag uint32

const (
	clientLongPassword capabilityFlag = 1 << iota
	clientFoundRows
	clientLongFlag
	clientConnectWithDB
	clientNoSchema
	clientCompress
	clientODBC
	clientLocalFiles
	clientIgnoreSpace
	clientProtocol41
	clientInteractive
	clientSSL
	clientIgnoreSIGPIPE
	clientTransactions
	clientReserved
	clientSecureConnection
	clientMultiStatements
	clientMultiResults
	clientPSMultiResults
	clientPluginAuth
	clientConnectAttrs
	clientPluginAuthLenencClientData
	clientCanHandleExpiredPasswords
	clientSessionTrack
	clientDeprecateEOF
)

// baseClientFlags are the capabilities this client always requests,
// intersected with whatever the server actually advertised.
const baseClientFlags = clientLongPassword |
	clientLongFlag |
	clientTransactions |
	clientProtocol41 |
	clientSecureConnection |
	clientPluginAuth |
	clientPluginAuthLenencClientData |
	clientDeprecateEOF

// status flags, second half of an OK/EOF packet.
type statusFlag uint16

const (
	statusInTrans statusFlag = 1 << iota
	statusAutocommit
	_
	statusMoreResultsExists
	statusNoGoodIndexUsed
	statusNoIndexUsed
	statusCursorExists
	statusLastRowSent
	statusDBDropped
	statusNoBackslashEscapes
	statusMetadataChanged
	statusQueryWasSlow
	statusPSOutParams
	statusInTransReadonly
	statusSessionStateChanged
)

// command bytes, first byte of a client-initiated packet.
const (
	comQuit         byte = 0x01
	comInitDB       byte = 0x02
	comQuery        byte = 0x03
	comFieldList    byte = 0x04
	comPing         byte = 0x0e
	comStmtPrepare  byte = 0x16
	comStmtExecute  byte = 0x17
	comStmtSendLongData byte = 0x18
	comStmtClose    byte = 0x19
	comStmtReset    byte = 0x1a
)

// field types, see column_type.h in the MySQL sources.
type fieldType byte

const (
	fieldTypeDecimal fieldType = iota
	fieldTypeTiny
	fieldTypeShort
	fieldTypeLong
	fieldTypeFloat
	fieldTypeDouble
	fieldTypeNULL
	fieldTypeTimestamp
	fieldTypeLongLong
	fieldTypeInt24
	fieldTypeDate
	fieldTypeTime
	fieldTypeDateTime
	fieldTypeYear
	fieldTypeNewDate
	fieldTypeVarChar
	fieldTypeBit
)

const (
	fieldTypeJSON fieldType = iota + 0xf5
	fieldTypeNewDecimal
	fieldTypeEnum
	fieldTypeSet
	fieldTypeTinyBLOB
	fieldTypeMediumBLOB
	fieldTypeLongBLOB
	fieldTypeBLOB
	fieldTypeVarString
	fieldTypeString
	fieldTypeGeometry
)

// fieldFlag bits, as carried on a Column Definition 41 packet.
type fieldFlag uint16

const (
	flagNotNULL fieldFlag = 1 << iota
	flagPriKey
	flagUniqueKey
	flagMultipleKey
	flagBLOB
	flagUnsigned
	flagZeroFill
	flagBinary
	flagEnum
	flagAutoIncrement
	flagTimestamp
	flagSet
)

// digits10/digits01 are lookup tables used to format two-digit decimal
// fields (year/month/day/hour/...) without calling strconv.
var digits10 = [...]byte{
	'0', '0', '0', '0', '0', '0', '0', '0', '0', '0',
	'1', '1', '1', '1', '1', '1', '1', '1', '1', '1',
	'2', '2', '2', '2', '2', '2', '2', '2', '2', '2',
	'3', '3', '3', '3', '3', '3', '3', '3', '3', '3',
	'4', '4', '4', '4', '4', '4', '4', '4', '4', '4',
	'5', '5', '5', '5', '5', '5', '5', '5', '5', '5',
	'6', '6', '6', '6', '6', '6', '6', '6', '6', '6',
	'7', '7', '7', '7', '7', '7', '7', '7', '7', '7',
	'8', '8', '8', '8', '8', '8', '8', '8', '8', '8',
	'9', '9', '9', '9', '9', '9', '9', '9', '9', '9',
}

var digits01 = [...]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
}
