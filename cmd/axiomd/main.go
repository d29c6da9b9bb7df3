// Command axiomd is the compositor daemon: it opens the client socket,
// drives the frame clock, and owns the single goroutine that mutates
// compositor state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/axiomwm/axiom/internal/backend/software"
	wgpubackend "github.com/axiomwm/axiom/internal/backend/wgpu"
	"github.com/axiomwm/axiom/internal/compositor"
	"github.com/axiomwm/axiom/internal/config"
	"github.com/axiomwm/axiom/internal/log"
	"github.com/axiomwm/axiom/internal/protocol"
	"github.com/axiomwm/axiom/internal/render"
	"github.com/axiomwm/axiom/internal/wire"
)

var (
	displayName = flag.String("display", "wayland-1", "name of the socket to create under XDG_RUNTIME_DIR")
	backendName = flag.String("backend", "wgpu", "render backend: wgpu or software")
	width       = flag.Uint("width", 1920, "output width in pixels")
	height      = flag.Uint("height", 1080, "output height in pixels")
	frameRate   = flag.Int("fps", 60, "target frame rate")
	stickyFocus = flag.Bool("sticky-focus", false, "decouple keyboard focus from column focus")
	verbose     = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		log.Error("axiomd exiting", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfg.OutputWidth = int(*width)
	cfg.OutputHeight = int(*height)
	cfg.FrameRate = *frameRate

	backend, closeBackend, err := openBackend(*backendName, uint32(*width), uint32(*height))
	if err != nil {
		return fmt.Errorf("open render backend: %w", err)
	}
	defer closeBackend()

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	listener, err := wire.Listen(runtimeDir, *displayName)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", *displayName, err)
	}
	defer listener.Close()
	log.Info("listening for clients", "display", *displayName, "runtime_dir", runtimeDir)

	loop, err := wire.NewEventLoop(listener, cfg.FrameInterval())
	if err != nil {
		return fmt.Errorf("start event loop: %w", err)
	}
	defer loop.Close()

	core := compositor.New(cfg, backend, *stickyFocus)
	defer core.Shutdown()

	shared := protocol.NewConnRegistry()
	core.SetEmitter(shared)
	dispatchers := make(map[*wire.Conn]*protocol.Dispatcher)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			log.Info("received signal, shutting down", "signal", sig)
			return nil

		case conn := <-loop.NewConn:
			log.Debug("client connected", "fd", mustFd(conn))
			dispatchers[conn] = protocol.NewDispatcher(core, core.Clients, conn, shared)

		case inbound := <-loop.Inbox:
			d, ok := dispatchers[inbound.Conn]
			if !ok {
				continue
			}
			if inbound.Err != nil {
				log.Debug("client connection ended", "error", inbound.Err)
				d.Disconnect()
				delete(dispatchers, inbound.Conn)
				continue
			}
			if err := d.Dispatch(inbound.Msg); err != nil {
				log.Warn("request dispatch failed", "opcode", inbound.Msg.Header.Opcode, "sender", inbound.Msg.Header.Sender, "error", err)
			}

		case now := <-loop.Ticks():
			core.ExpireConfigures(now, nil, nil)
			core.Tick(now)
		}
	}
}

func mustFd(c *wire.Conn) int {
	fd, err := c.Fd()
	if err != nil {
		return -1
	}
	return fd
}

func openBackend(name string, width, height uint32) (render.Backend, func(), error) {
	switch name {
	case "wgpu":
		b, err := wgpubackend.New(0, 0, width, height)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "software":
		b, err := software.New("axiomd", int32(width), int32(height))
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want wgpu or software)", name)
	}
}
