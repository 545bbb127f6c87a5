package decoder

import "fmt"

// ErrFormat represents a broken chunk framing: a missing TPX3 magic or a
// malformed header. The stream cannot be resynchronized after it.
type ErrFormat struct {
	Offset int64
	Word   uint64
	Reason string
}

func (e *ErrFormat) Error() string {
	return fmt.Sprintf("format error at byte %d (word 0x%016x): %s", e.Offset, e.Word, e.Reason)
}

// ErrTruncatedStream represents a word cut short by the end of the stream.
type ErrTruncatedStream struct {
	Offset int64
	Got    int
}

func (e *ErrTruncatedStream) Error() string {
	return fmt.Sprintf("truncated stream at byte %d: got %d of %d bytes", e.Offset, e.Got, WORD_SIZE)
}

// ErrUnknownPacketType represents a payload word with an unsupported type
// header. Offset is -1 when the word was parsed outside of a stream.
type ErrUnknownPacketType struct {
	Offset     int64
	TypeHeader uint8
	Word       uint64
}

func (e *ErrUnknownPacketType) Error() string {
	return fmt.Sprintf("unknown packet type 0x%X at byte %d (word 0x%016x)", e.TypeHeader, e.Offset, e.Word)
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

// ErrWriteTable represents an error when appending rows to a table.
type ErrWriteTable struct {
	TableName string
	Err       error
}

func (e *ErrWriteTable) Error() string {
	return fmt.Sprintf("error writing table %q: %v", e.TableName, e.Err)
}

func (e *ErrWriteTable) Unwrap() error { return e.Err }
