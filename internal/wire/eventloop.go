package wire

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Inbound pairs a decoded message with the connection it arrived on, so
// the single compositor goroutine that drains EventLoop.Inbox knows which
// client to reply to or disconnect.
type Inbound struct {
	Conn *Conn
	Msg  *Message
	Err  error
}

// EventLoop fans client I/O and frame pacing into one channel the
// compositor core drains from a single goroutine, keeping protocol state
// mutation single-threaded even though socket reads happen concurrently.
type EventLoop struct {
	listener *Listener
	Inbox    chan Inbound
	NewConn  chan *Conn
	ticks    chan time.Time

	timerFd int
}

// NewEventLoop wraps a listener and arms a timerfd-backed frame clock at
// the given interval, bridged onto a channel via epoll so frame pacing
// doesn't depend on the GC-sensitive runtime timer heap.
func NewEventLoop(listener *Listener, frameInterval time.Duration) (*EventLoop, error) {
	el := &EventLoop{
		listener: listener,
		Inbox:    make(chan Inbound, 64),
		NewConn:  make(chan *Conn, 8),
		ticks:    make(chan time.Time, 1),
	}

	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return nil, fmt.Errorf("wire: timerfd_create: %w", err)
	}
	spec := &unix.ItimerSpec{
		Value:    unix.NsecToTimespec(frameInterval.Nanoseconds()),
		Interval: unix.NsecToTimespec(frameInterval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("wire: timerfd_settime: %w", err)
	}
	el.timerFd = fd

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("wire: epoll_create1: %w", err)
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		return nil, fmt.Errorf("wire: epoll_ctl: %w", err)
	}

	go el.runTimerBridge(epfd)
	go el.runAccept()

	return el, nil
}

func (el *EventLoop) runTimerBridge(epfd int) {
	events := make([]unix.EpollEvent, 4)
	buf := make([]byte, 8)
	for {
		n, err := unix.EpollWait(epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			if _, err := unix.Read(int(events[i].Fd), buf); err != nil {
				continue
			}
			select {
			case el.ticks <- time.Now():
			default:
				// a tick is already pending; frame pacing coalesces bursts
			}
		}
	}
}

func (el *EventLoop) runAccept() {
	for {
		conn, err := el.listener.Accept()
		if err != nil {
			return
		}
		el.NewConn <- conn
		go el.pumpConn(conn)
	}
}

// pumpConn blocks reading whole messages off one client and forwards
// them to Inbox; it exits (after reporting the error once) when the
// connection is closed or errors.
func (el *EventLoop) pumpConn(conn *Conn) {
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			el.Inbox <- Inbound{Conn: conn, Err: err}
			return
		}
		el.Inbox <- Inbound{Conn: conn, Msg: msg}
	}
}

// Ticks delivers frame-pacing wakeups sourced from the timerfd.
func (el *EventLoop) Ticks() <-chan time.Time {
	return el.ticks
}

func (el *EventLoop) Close() error {
	return unix.Close(el.timerFd)
}
