package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/cardinal-lookup/internal/controller"
)

// ErrNotTerminal is returned by Run when stdin is not a terminal.
var ErrNotTerminal = errors.New("interactive viewer needs a terminal")

const defaultPageSize = 4

// Viewer pages through the report groups of a controller and lets the user
// strike groups and save. It also implements controller.Notifier so the
// last notification shows in its status line.
type Viewer struct {
	Controller *controller.Controller
	In         *os.File
	Out        io.Writer
	Style      Style
	PageSize   int // groups per page
	SaveName   string

	mu     sync.Mutex
	status string
}

// Notify records the message for the status line.
func (v *Viewer) Notify(n controller.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = n.Message
}

func (v *Viewer) statusLine() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Run puts the terminal in raw mode and processes keys until quit.
func (v *Viewer) Run(ctx context.Context) error {
	in := v.In
	if in == nil {
		in = os.Stdin
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return v.Loop(ctx, bufio.NewReader(in))
}

// Loop reads keys from r until quit, EOF or ctx is done.
func (v *Viewer) Loop(ctx context.Context, r *bufio.Reader) error {
	size := v.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	pager := &Pager{PageSize: size}

	for {
		rep := v.Controller.Report()
		pager.Total = len(rep.Groups)
		if pager.Page >= pager.Pages() {
			pager.Page, pager.Selected = pager.Pages()-1, 0
		}
		v.draw(rep, pager)

		if ctx.Err() != nil {
			return nil
		}
		k, err := ReadKey(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch k {
		case KeyQuit:
			fmt.Fprint(v.Out, "\r\n")
			return nil
		case KeyToggle:
			if idx := pager.Current(); idx >= 0 {
				if _, err := v.Controller.ToggleStrike(idx); err != nil {
					v.Notify(controller.Notification{Level: controller.LevelError, Message: err.Error()})
				}
			}
		case KeySave:
			// failures are reported through Notify
			_ = v.Controller.SaveOrUpdate(ctx, v.SaveName)
		default:
			pager.Move(k)
		}
	}
}

func (v *Viewer) draw(rep controller.Report, pager *Pager) {
	var b strings.Builder
	if v.Style.Color {
		b.WriteString(ansiClear)
	}

	if len(rep.Groups) == 0 {
		b.WriteString(EmptyReport + "\n")
	} else {
		start, end := pager.Bounds()
		for i := start; i < end; i++ {
			v.Style.WriteGroup(&b, rep.Groups[i], i == pager.Current())
		}
	}

	fmt.Fprintf(&b, "(↑/↓ select, ←/→ page, space strike, w %s, Esc quit)  Page %d/%d\n",
		strings.ToLower(rep.SaveLabel), pager.Page+1, pager.Pages())
	if s := v.statusLine(); s != "" {
		b.WriteString(s + "\n")
	}

	// raw mode needs explicit carriage returns
	io.WriteString(v.Out, strings.ReplaceAll(b.String(), "\n", "\r\n"))
}
