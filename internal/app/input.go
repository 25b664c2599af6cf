package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BioHazard786/posebridge/internal/pose"
)

// ParseTrackerLine turns one line of tracker input into an event: angles
// ("yaw=0.2 pitch=-0.1", "0.2 -0.1 0"), "reset" or "quit".
func ParseTrackerLine(line string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "reset":
		return PoseReset{}, nil
	case "quit", "exit":
		return QuitEvent{}, nil
	}
	values, err := pose.ParseInput(line)
	if err != nil {
		return nil, err
	}
	return PoseInput{Values: values}, nil
}

// ParseViewerLine turns one line of viewer input into an event.
func ParseViewerLine(line string) (any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "connect", "join":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: connect <room>")
		}
		return ConnectRequest{Room: args[0]}, nil
	case "disconnect":
		return DisconnectRequest{}, nil
	case "ar", "start":
		return EnterARRequest{}, nil
	case "exit", "stop":
		return ExitARRequest{}, nil
	case "select", "place":
		return SelectRequest{}, nil
	case "aim":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: aim <dyaw> <dpitch>")
		}
		yaw, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("aim yaw: %w", err)
		}
		pitch, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("aim pitch: %w", err)
		}
		return AimInput{Yaw: yaw, Pitch: pitch}, nil
	case "surface":
		return SurfaceToggle{}, nil
	case "log":
		return DebugToggle{}, nil
	case "quit":
		return QuitEvent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

// ReadLines feeds parsed lines from r to post until r ends, ctx is done or
// the loop stops. Bad lines go to warn and are skipped. End of input quits.
func ReadLines(ctx context.Context, r io.Reader, parse func(string) (any, error), post func(any) bool, warn func(error)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := parse(line)
		if err != nil {
			warn(err)
			continue
		}
		if !post(ev) {
			return
		}
		if _, quit := ev.(QuitEvent); quit {
			return
		}
	}
	if err := sc.Err(); err != nil {
		warn(err)
	}
	post(QuitEvent{})
}
