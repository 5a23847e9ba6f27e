package x11c

import (
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// Transport is the bidirectional byte pipe with optional ancillary
// file-descriptor transfer the core requires of an embedder-provided
// connection (spec.md §4.1, §6 "Transport contract").
type Transport interface {
	// SendPacket transmits all of buf, and on platforms that support it,
	// additionally transmits fds out-of-band in one batch. It blocks
	// until all bytes are written.
	SendPacket(buf []byte, fds []int) error

	// ReadPacket fills buf exactly, appending any received ancillary
	// descriptors to *fdsOut.
	ReadPacket(buf []byte, fdsOut *[]int) error

	// Close releases the underlying connection.
	Close() error
}

// UnixTransport is a Transport over a Unix domain socket, the normal way
// an X11 client reaches its server, using SCM_RIGHTS to pass file
// descriptors (e.g. for DRI3/Present buffers) alongside request bytes.
// The send/receive mechanics mirror the Wayland client connection this
// was grounded on: both are local-display-server wire protocols that
// multiplex ancillary fds over a SOCK_STREAM socket.
type UnixTransport struct {
	conn *net.UnixConn
	fd   int
}

// DialUnixTransport connects to the Unix domain socket at path (e.g.
// "/tmp/.X11-unix/X0").
func DialUnixTransport(path string) (*UnixTransport, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, wrapIO(err, "dialing X11 unix socket")
	}
	rc, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, wrapIO(err, "obtaining raw connection")
	}
	var fd int
	if err := rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		conn.Close()
		return nil, wrapIO(err, "obtaining socket fd")
	}
	return &UnixTransport{conn: conn, fd: fd}, nil
}

// SendPacket implements Transport.
func (t *UnixTransport) SendPacket(buf []byte, fds []int) error {
	if len(fds) == 0 {
		n, err := t.conn.Write(buf)
		if err != nil {
			return wrapIO(err, "writing packet")
		}
		if n == 0 && len(buf) > 0 {
			return wrapIO(errShortWrite, "writing packet")
		}
		return nil
	}

	rights := unix.UnixRights(fds...)
	if _, _, err := t.conn.WriteMsgUnix(buf, rights, nil); err != nil {
		return wrapIO(err, "sendmsg with ancillary fds")
	}
	return nil
}

// ReadPacket implements Transport.
func (t *UnixTransport) ReadPacket(buf []byte, fdsOut *[]int) error {
	oob := make([]byte, unix.CmsgSpace(4*16)) // room for up to 16 incoming fds

	total := 0
	for total < len(buf) {
		n, oobn, _, _, err := t.conn.ReadMsgUnix(buf[total:], oob)
		if err != nil {
			return wrapIO(err, "recvmsg")
		}
		if n == 0 {
			return wrapIO(io.ErrUnexpectedEOF, "recvmsg")
		}
		total += n

		if oobn > 0 {
			scms, err := unix.ParseSocketControlMessage(oob[:oobn])
			if err == nil {
				for _, scm := range scms {
					rights, err := unix.ParseUnixRights(&scm)
					if err == nil {
						*fdsOut = append(*fdsOut, rights...)
					}
				}
			}
		}
	}
	return nil
}

// Close implements Transport.
func (t *UnixTransport) Close() error {
	return t.conn.Close()
}

var _ Transport = (*UnixTransport)(nil)

// warnFDsUnsupportedOnce reports, at most once per process, that fds were
// supplied to a transport running on a platform without ancillary
// descriptor support (spec.md §4.1).
var warnFDsUnsupportedOnce = func() func() {
	var warned bool
	return func() {
		if !warned {
			warned = true
			debugLogger.Warning("x11c: file descriptors supplied but this platform's transport cannot pass them")
		}
	}
}()

// FileTransport is a Transport over any io.ReadWriteCloser that cannot
// pass ancillary file descriptors (e.g. a TCP connection, or os.Pipe on a
// platform with no SCM_RIGHTS support). Supplying fds to SendPacket is not
// an error; they are dropped after a one-time warning.
type FileTransport struct {
	rwc io.ReadWriteCloser
}

// NewFileTransport wraps rwc as a Transport with no fd-passing support.
func NewFileTransport(rwc io.ReadWriteCloser) *FileTransport {
	return &FileTransport{rwc: rwc}
}

// SendPacket implements Transport.
func (t *FileTransport) SendPacket(buf []byte, fds []int) error {
	if len(fds) > 0 {
		warnFDsUnsupportedOnce()
	}
	n, err := t.rwc.Write(buf)
	if err != nil {
		return wrapIO(err, "writing packet")
	}
	if n == 0 && len(buf) > 0 {
		return wrapIO(errShortWrite, "writing packet")
	}
	return nil
}

// ReadPacket implements Transport.
func (t *FileTransport) ReadPacket(buf []byte, fdsOut *[]int) error {
	_, err := io.ReadFull(t.rwc, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return wrapIO(io.ErrUnexpectedEOF, "reading packet")
	}
	if err != nil {
		return wrapIO(err, "reading packet")
	}
	return nil
}

// Close implements Transport.
func (t *FileTransport) Close() error {
	return t.rwc.Close()
}

var _ Transport = (*FileTransport)(nil)
