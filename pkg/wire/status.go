package wire

// Status is a Z-Stack command status code as returned by the NV commands.
type Status uint8

const (
	StatusSuccess          Status = 0x00
	StatusFailure          Status = 0x01
	StatusInvalidParameter Status = 0x02

	// StatusNVItemUninit is returned for items that do not exist.
	StatusNVItemUninit   Status = 0x09
	StatusNVOperFailed   Status = 0x0A
	StatusInvalidMemSize Status = 0x0B
	StatusNVBadItemLen   Status = 0x0C

	StatusMemError   Status = 0x10
	StatusBufferFull Status = 0x11

	// StatusNotAuthorized is returned when reading a security-restricted item.
	StatusNotAuthorized Status = 0x7E
)

// Known reports whether s is one of the NV related status codes.
func (s Status) Known() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusInvalidParameter, StatusNVItemUninit,
		StatusNVOperFailed, StatusInvalidMemSize, StatusNVBadItemLen,
		StatusMemError, StatusBufferFull, StatusNotAuthorized:
		return true
	}
	return false
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusNVItemUninit:
		return "NV_ITEM_UNINIT"
	case StatusNVOperFailed:
		return "NV_OPER_FAILED"
	case StatusInvalidMemSize:
		return "INVALID_MEM_SIZE"
	case StatusNVBadItemLen:
		return "NV_BAD_ITEM_LEN"
	case StatusMemError:
		return "MEM_ERROR"
	case StatusBufferFull:
		return "BUFFER_FULL"
	case StatusNotAuthorized:
		return "NOT_AUTHORIZED"
	default:
		return unknownName(uint8(s))
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
