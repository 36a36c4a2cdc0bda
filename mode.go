package archivefs

import (
	"os"
	"strings"
)

// Mode is a set of access flags for OpenFile.
type Mode uint32

// Access flags. The values match the engine's historical file modes.
const (
	ModeRead      Mode = 0x001
	ModeWrite     Mode = 0x002
	ModeAppend    Mode = 0x004
	ModeCreate    Mode = 0x008
	ModeTruncate  Mode = 0x010
	ModeText      Mode = 0x020
	ModeBinary    Mode = 0x040
	ModeOnlyNew   Mode = 0x080
	ModeStreaming Mode = 0x100
)

const writeModes = ModeWrite | ModeAppend | ModeCreate | ModeTruncate | ModeOnlyNew

// Writable reports whether m requests any kind of write access.
func (m Mode) Writable() bool {
	return m&writeModes != 0
}

// osFlags converts m to os.OpenFile flags for the loose filesystem.
// Text, binary and streaming are hints with no effect on the flags.
func (m Mode) osFlags() int {
	var flag int
	switch {
	case !m.Writable():
		return os.O_RDONLY
	case m&ModeRead != 0:
		flag = os.O_RDWR
	default:
		flag = os.O_WRONLY
	}
	if m&ModeAppend != 0 {
		flag |= os.O_APPEND
	}
	if m&ModeCreate != 0 {
		flag |= os.O_CREATE
	}
	if m&ModeTruncate != 0 {
		flag |= os.O_TRUNC
	}
	if m&ModeOnlyNew != 0 {
		flag |= os.O_CREATE | os.O_EXCL
	}
	return flag
}

func (m Mode) String() string {
	names := []struct {
		bit  Mode
		name string
	}{
		{ModeRead, "read"},
		{ModeWrite, "write"},
		{ModeAppend, "append"},
		{ModeCreate, "create"},
		{ModeTruncate, "truncate"},
		{ModeText, "text"},
		{ModeBinary, "binary"},
		{ModeOnlyNew, "onlynew"},
		{ModeStreaming, "streaming"},
	}
	var parts []string
	for _, n := range names {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
