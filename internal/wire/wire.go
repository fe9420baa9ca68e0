// Package wire implements the tagged, length-prefixed binary frame format
// used between the PTY supervisor and its client. One frame is always one
// sendmsg/recvmsg on the wire (see internal/fdconn); this package only
// handles the byte layout inside that single message.
package wire

import (
	"encoding/binary"
	"fmt"
)

// magic is a sentinel stamped into every codec context at creation time.
// Every encode/decode call asserts it before touching the buffer, catching
// use of a zero-value or freed context.
const magic = 0xDEADBEEF

// Tag enumerates the logical role of the next field in a frame. Both ends
// of the connection share this compiled-in enumeration; there is no wire
// version field.
type Tag int32

const (
	TagType Tag = iota

	TagLaunchPath
	TagLaunchArgv
	TagLaunchEnvp
	TagLaunchWidth
	TagLaunchHeight
	TagLaunchIsUTF8
	TagLaunchPwd
	TagLaunchUniqueID

	TagLaunchRespStatus
	TagLaunchRespPid

	TagReportIsLast
	TagReportPid
	TagReportPath
	TagReportArgs
	TagReportEnv
	TagReportPwd
	TagReportIsUTF8

	TagTerminationPid
	TagTerminationStatus
)

// MsgType discriminates the four message kinds carried by this protocol.
type MsgType int32

const (
	MsgLaunch MsgType = iota
	MsgLaunchResponse
	MsgReportChild
	MsgTermination
)

// ParseError is returned for any malformed frame: wrong tag or undersized
// buffer. The caller must treat it as fatal and close the connection. An
// unknown message type is not a ParseError: PeekType returns the raw type
// value and the caller rejects types it does not accept.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "wire: parse error: " + e.Reason }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// Launch is the client-originated request to start a child process under a
// PTY.
type Launch struct {
	Path     string
	Argv     []string
	Envp     []string
	Width    int32
	Height   int32
	IsUTF8   bool
	Pwd      string
	UniqueID uint64
}

// LaunchResponse answers a Launch. The PTY master fd travels out-of-band
// alongside this message (see internal/fdconn) and is present iff
// Status == 0.
type LaunchResponse struct {
	Status int32
	Pid    int32
}

// ReportChild replays one registry entry during a reattach burst. The
// master fd travels out-of-band alongside this message.
type ReportChild struct {
	IsLast bool
	Pid    int32
	Path   string
	Argv   []string
	Envp   []string
	IsUTF8 bool
	Pwd    string
}

// Termination announces that a supervised child has exited.
type Termination struct {
	Pid    int32
	Status int32
}

// Encoder builds a single frame's bytes. Zero-value Encoders are invalid;
// use NewEncoder.
type Encoder struct {
	magic uint32
	buf   []byte
}

func NewEncoder() *Encoder {
	return &Encoder{magic: magic, buf: make([]byte, 0, 256)}
}

func (e *Encoder) assertValid() {
	if e.magic != magic {
		panic("wire: use of uninitialized or freed Encoder")
	}
}

func (e *Encoder) putTag(t Tag) {
	e.assertValid()
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) putInt32(t Tag, v int32) {
	e.putTag(t)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) putBool(t Tag, v bool) {
	var i int32
	if v {
		i = 1
	}
	e.putInt32(t, i)
}

func (e *Encoder) putUint64(t Tag, v uint64) {
	e.putTag(t)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) putString(t Tag, s string) {
	e.putTag(t)
	e.putRawString(s)
}

func (e *Encoder) putRawString(s string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	e.buf = append(e.buf, b[:]...)
	e.buf = append(e.buf, s...)
}

func (e *Encoder) putStringArray(t Tag, items []string) {
	e.putTag(t)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(items)))
	e.buf = append(e.buf, b[:]...)
	for _, s := range items {
		e.putRawString(s)
	}
}

// Bytes returns the encoded frame. Valid only after encoding exactly one
// message.
func (e *Encoder) Bytes() []byte {
	e.assertValid()
	return e.buf
}

// EncodeLaunch encodes a client-originated Launch request.
func EncodeLaunch(l *Launch) []byte {
	e := NewEncoder()
	e.putInt32(TagType, int32(MsgLaunch))
	e.putString(TagLaunchPath, l.Path)
	e.putStringArray(TagLaunchArgv, l.Argv)
	e.putStringArray(TagLaunchEnvp, l.Envp)
	e.putInt32(TagLaunchWidth, l.Width)
	e.putInt32(TagLaunchHeight, l.Height)
	e.putBool(TagLaunchIsUTF8, l.IsUTF8)
	e.putString(TagLaunchPwd, l.Pwd)
	e.putUint64(TagLaunchUniqueID, l.UniqueID)
	return e.Bytes()
}

// EncodeLaunchResponse encodes a server-originated LaunchResponse.
func EncodeLaunchResponse(r *LaunchResponse) []byte {
	e := NewEncoder()
	e.putInt32(TagType, int32(MsgLaunchResponse))
	e.putInt32(TagLaunchRespStatus, r.Status)
	e.putInt32(TagLaunchRespPid, r.Pid)
	return e.Bytes()
}

// EncodeReportChild encodes one replay-burst entry.
func EncodeReportChild(r *ReportChild) []byte {
	e := NewEncoder()
	e.putInt32(TagType, int32(MsgReportChild))
	e.putBool(TagReportIsLast, r.IsLast)
	e.putInt32(TagReportPid, r.Pid)
	e.putString(TagReportPath, r.Path)
	e.putStringArray(TagReportArgs, r.Argv)
	e.putStringArray(TagReportEnv, r.Envp)
	e.putBool(TagReportIsUTF8, r.IsUTF8)
	e.putString(TagReportPwd, r.Pwd)
	return e.Bytes()
}

// EncodeTermination encodes a server-originated Termination event.
func EncodeTermination(t *Termination) []byte {
	e := NewEncoder()
	e.putInt32(TagType, int32(MsgTermination))
	e.putInt32(TagTerminationPid, t.Pid)
	e.putInt32(TagTerminationStatus, t.Status)
	return e.Bytes()
}

// decoder walks a frame buffer sequentially, validating tags as it goes.
type decoder struct {
	magic uint32
	buf   []byte
	off   int
}

func newDecoder(buf []byte) *decoder {
	return &decoder{magic: magic, buf: buf}
}

func (d *decoder) assertValid() {
	if d.magic != magic {
		panic("wire: use of uninitialized or freed decoder")
	}
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) rawInt32() (int32, error) {
	d.assertValid()
	if d.remaining() < 4 {
		return 0, parseErrorf("undersized buffer reading int32 at offset %d", d.off)
	}
	v := int32(binary.LittleEndian.Uint32(d.buf[d.off:]))
	d.off += 4
	return v, nil
}

func (d *decoder) rawUint64() (uint64, error) {
	d.assertValid()
	if d.remaining() < 8 {
		return 0, parseErrorf("undersized buffer reading uint64 at offset %d", d.off)
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) tag() (Tag, error) {
	v, err := d.rawInt32()
	return Tag(v), err
}

func (d *decoder) expectTag(want Tag) error {
	got, err := d.tag()
	if err != nil {
		return err
	}
	if got != want {
		return parseErrorf("expected tag %d, got %d", want, got)
	}
	return nil
}

func (d *decoder) int32(want Tag) (int32, error) {
	if err := d.expectTag(want); err != nil {
		return 0, err
	}
	return d.rawInt32()
}

func (d *decoder) bool(want Tag) (bool, error) {
	v, err := d.int32(want)
	return v != 0, err
}

func (d *decoder) uint64(want Tag) (uint64, error) {
	if err := d.expectTag(want); err != nil {
		return 0, err
	}
	return d.rawUint64()
}

func (d *decoder) rawString() (string, error) {
	n, err := d.rawInt32()
	if err != nil {
		return "", err
	}
	if n < 0 || d.remaining() < int(n) {
		return "", parseErrorf("undersized buffer reading string of length %d", n)
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

func (d *decoder) string(want Tag) (string, error) {
	if err := d.expectTag(want); err != nil {
		return "", err
	}
	return d.rawString()
}

func (d *decoder) stringArray(want Tag) ([]string, error) {
	if err := d.expectTag(want); err != nil {
		return nil, err
	}
	n, err := d.rawInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, parseErrorf("negative string array count %d", n)
	}
	out := make([]string, n)
	for i := range out {
		s, err := d.rawString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// PeekType reads only the leading type tag, used by the server to decide
// whether a client-originated frame is even a request type it accepts.
func PeekType(buf []byte) (MsgType, error) {
	d := newDecoder(buf)
	v, err := d.int32(TagType)
	if err != nil {
		return 0, err
	}
	return MsgType(v), nil
}

// DecodeLaunch decodes a client-originated Launch request. The caller must
// have already confirmed via PeekType that this is a Launch frame.
func DecodeLaunch(buf []byte) (*Launch, error) {
	d := newDecoder(buf)
	if _, err := d.int32(TagType); err != nil {
		return nil, err
	}
	l := &Launch{}
	var err error
	if l.Path, err = d.string(TagLaunchPath); err != nil {
		return nil, err
	}
	if l.Argv, err = d.stringArray(TagLaunchArgv); err != nil {
		return nil, err
	}
	if l.Envp, err = d.stringArray(TagLaunchEnvp); err != nil {
		return nil, err
	}
	if l.Width, err = d.int32(TagLaunchWidth); err != nil {
		return nil, err
	}
	if l.Height, err = d.int32(TagLaunchHeight); err != nil {
		return nil, err
	}
	if l.IsUTF8, err = d.bool(TagLaunchIsUTF8); err != nil {
		return nil, err
	}
	if l.Pwd, err = d.string(TagLaunchPwd); err != nil {
		return nil, err
	}
	if l.UniqueID, err = d.uint64(TagLaunchUniqueID); err != nil {
		return nil, err
	}
	return l, nil
}

// DecodeLaunchResponse decodes a server-originated LaunchResponse.
func DecodeLaunchResponse(buf []byte) (*LaunchResponse, error) {
	d := newDecoder(buf)
	if _, err := d.int32(TagType); err != nil {
		return nil, err
	}
	r := &LaunchResponse{}
	var err error
	if r.Status, err = d.int32(TagLaunchRespStatus); err != nil {
		return nil, err
	}
	if r.Pid, err = d.int32(TagLaunchRespPid); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeReportChild decodes one replay-burst entry.
func DecodeReportChild(buf []byte) (*ReportChild, error) {
	d := newDecoder(buf)
	if _, err := d.int32(TagType); err != nil {
		return nil, err
	}
	r := &ReportChild{}
	var err error
	if r.IsLast, err = d.bool(TagReportIsLast); err != nil {
		return nil, err
	}
	if r.Pid, err = d.int32(TagReportPid); err != nil {
		return nil, err
	}
	if r.Path, err = d.string(TagReportPath); err != nil {
		return nil, err
	}
	if r.Argv, err = d.stringArray(TagReportArgs); err != nil {
		return nil, err
	}
	if r.Envp, err = d.stringArray(TagReportEnv); err != nil {
		return nil, err
	}
	if r.IsUTF8, err = d.bool(TagReportIsUTF8); err != nil {
		return nil, err
	}
	if r.Pwd, err = d.string(TagReportPwd); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeTermination decodes a server-originated Termination event.
func DecodeTermination(buf []byte) (*Termination, error) {
	d := newDecoder(buf)
	if _, err := d.int32(TagType); err != nil {
		return nil, err
	}
	t := &Termination{}
	var err error
	if t.Pid, err = d.int32(TagTerminationPid); err != nil {
		return nil, err
	}
	if t.Status, err = d.int32(TagTerminationStatus); err != nil {
		return nil, err
	}
	return t, nil
}
