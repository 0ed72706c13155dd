package cmd

import (
	"context"
	"os"
	"runtime"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// Seams for tests.
var (
	stdinIsPiped    = func() bool { stat, _ := os.Stdin.Stat(); return (stat.Mode() & os.ModeCharDevice) == 0 }
	openTerminal    = openTerminalDevices
	termGetSize     = term.GetSize
	newResizeTicker = func(d time.Duration) resizeTicker { return realResizeTicker{Ticker: time.NewTicker(d)} }
	sendWindowSize  = func(p *tea.Program, msg tea.WindowSizeMsg) { p.Send(msg) }
)

const resizePollInterval = 250 * time.Millisecond

type resizeTicker interface {
	C() <-chan time.Time
	Stop()
}

type realResizeTicker struct {
	*time.Ticker
}

func (t realResizeTicker) C() <-chan time.Time { return t.Ticker.C }

// terminal is the controlling terminal, reopened because stdin carries rows.
// out is nil when only the input device could be opened, and equal to in when
// one device serves both directions.
type terminal struct {
	in, out *os.File
}

func (t terminal) close() {
	_ = t.in.Close()
	if t.out != nil && t.out != t.in {
		_ = t.out.Close()
	}
}

// terminalOptions attaches the picker to the controlling terminal when the
// rows arrived on stdin, so keys and resizes still reach it. The returned func
// stops the size watcher and closes the devices. With an interactive stdin, or
// no terminal to open, there are no options and the program keeps its defaults.
func terminalOptions(ctx context.Context) ([]tea.ProgramOption, func()) {
	if !stdinIsPiped() {
		return nil, func() {}
	}
	in, out, err := openTerminal()
	if err != nil {
		if in != nil {
			_ = in.Close()
		}
		return nil, func() {}
	}
	tty := terminal{in: in, out: out}

	ctx, cancel := context.WithCancel(ctx)
	opts := []tea.ProgramOption{tea.WithInput(tty.in)}
	if tty.out != nil {
		opts = append(opts, tea.WithOutput(tty.out), watchTerminalSize(ctx, tty.out))
	}
	return opts, func() {
		cancel()
		tty.close()
	}
}

// openTerminalDevices opens the platform's console devices. A failure to open
// the output device still returns the input device.
func openTerminalDevices() (*os.File, *os.File, error) {
	inName, outName := terminalDeviceNames(runtime.GOOS)
	in, err := os.OpenFile(inName, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if outName == "" || outName == inName {
		return in, in, nil
	}
	out, err := os.OpenFile(outName, os.O_RDWR, 0)
	if err != nil {
		return in, nil, err
	}
	return in, out, nil
}

func terminalDeviceNames(goos string) (in, out string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}

// watchTerminalSize polls the size of out and sends a WindowSizeMsg whenever
// it changes. Resize signals do not follow a reopened terminal on every
// platform. Polling ends with ctx.
func watchTerminalSize(ctx context.Context, out *os.File) tea.ProgramOption {
	return func(p *tea.Program) {
		if ctx == nil || out == nil {
			return
		}
		go func() {
			ticker := newResizeTicker(resizePollInterval)
			defer ticker.Stop()

			var last tea.WindowSizeMsg
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C():
					w, h, err := termGetSize(int(out.Fd()))
					if err != nil {
						continue
					}
					size := tea.WindowSizeMsg{Width: w, Height: h}
					if size == last {
						continue
					}
					last = size
					sendWindowSize(p, size)
				}
			}
		}()
	}
}
