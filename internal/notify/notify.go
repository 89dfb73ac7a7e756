package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/scoreunlock/scoreunlock/internal/watcher"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Terminal prints notifications as a bordered box. Permission is granted
// when the output is an interactive terminal, or when forced.
type Terminal struct {
	out   io.Writer
	force bool
	now   func() time.Time
}

// NewTerminal creates a terminal notifier writing to out.
func NewTerminal(out io.Writer, force bool) *Terminal {
	return &Terminal{out: out, force: force, now: time.Now}
}

// Granted reports whether out is a terminal.
func (t *Terminal) Granted() bool {
	if t.force {
		return true
	}
	f, ok := t.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Notify writes the notification box.
func (t *Terminal) Notify(n watcher.Notification) (io.Closer, error) {
	content := titleStyle.Render(n.Title) + "  " + t.now().Format(time.Kitchen)
	if body := strings.TrimSpace(n.Body); body != "" {
		content += "\n" + body
	}
	if _, err := fmt.Fprintln(t.out, boxStyle.Render(content)); err != nil {
		return nil, fmt.Errorf("write notification: %w", err)
	}
	return noopCloser{}, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Desktop raises notifications through the freedesktop notify-send tool.
type Desktop struct {
	bin string
}

// NewDesktop looks up notify-send on PATH.
func NewDesktop() *Desktop {
	bin, _ := exec.LookPath("notify-send")
	return &Desktop{bin: bin}
}

// Granted reports whether notify-send is available.
func (d *Desktop) Granted() bool {
	return d.bin != ""
}

// Notify shows the notification. The desktop server expires it after the
// dismissal window, so Close has nothing left to do.
func (d *Desktop) Notify(n watcher.Notification) (io.Closer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if out, err := exec.CommandContext(ctx, d.bin, desktopArgs(n)...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return noopCloser{}, nil
}

// desktopArgs ends option parsing before the title so titles starting with
// "-" are shown as text.
func desktopArgs(n watcher.Notification) []string {
	args := []string{
		"--app-name=scoreunlock",
		"--expire-time=" + strconv.FormatInt(watcher.DismissAfter.Milliseconds(), 10),
		"--",
		n.Title,
	}
	if n.Body != "" {
		args = append(args, n.Body)
	}
	return args
}
