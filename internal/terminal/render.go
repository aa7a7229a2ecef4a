// Package terminal renders reports and batch lists as text and runs the
// interactive report viewer.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/controller"
)

// ANSI sequences.
const (
	ansiReset         = "\033[0m"
	ansiBold          = "\033[1m"
	ansiDim           = "\033[2m"
	ansiStrikethrough = "\033[9m"
	ansiRed           = "\033[31m"
	ansiGreen         = "\033[32m"
	ansiClear         = "\033[H\033[2J"
)

// EmptyReport is printed when a report has no records.
const EmptyReport = "0 RECORDS FOUND"

// Style decides whether ANSI sequences are emitted.
type Style struct {
	Color bool
}

func (s Style) wrap(code, text string) string {
	if !s.Color {
		return text
	}
	return code + text + ansiReset
}

// FormatRecord renders one record as a single line.
func FormatRecord(r batch.Record) string {
	name := r.Name
	if name == "" {
		name = "Unknown"
	}
	var parts []string
	for _, p := range []string{r.Address, r.City, strings.TrimSpace(r.State + " " + r.Zip)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return name + " | " + strings.Join(parts, ", ")
}

// WriteGroup writes one group block. Struck groups are drawn with a
// strikethrough, or marked "(struck)" without color.
func (s Style) WriteGroup(w io.Writer, g batch.Group, selected bool) {
	marker := "  "
	if selected {
		marker = "> "
	}
	header := fmt.Sprintf("GROUP %d", g.Index+1)
	if g.Struck && !s.Color {
		header += " (struck)"
	}
	fmt.Fprintf(w, "%s%s\n", marker, s.wrap(ansiBold, header))

	for _, r := range g.Records {
		line := FormatRecord(r)
		if g.Struck {
			line = s.wrap(ansiStrikethrough+ansiDim, line)
		}
		if r.Status != "" && r.Status != batch.StatusActive {
			line += " " + s.wrap(ansiRed, "["+r.Status+"]")
		}
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// WriteReport writes every group, or EmptyReport.
func (s Style) WriteReport(w io.Writer, records []batch.Record, strikes []bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, EmptyReport)
		return
	}
	for _, g := range batch.Restore(records, strikes).Groups() {
		s.WriteGroup(w, g, false)
	}
	fmt.Fprintf(w, "%d records in %d groups\n", len(records), batch.GroupCount(len(records)))
}

// WriteBatches writes the saved batch list with 1-based indexes.
func (s Style) WriteBatches(w io.Writer, batches []batch.Batch) {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No saved batches.")
		return
	}
	for i, b := range batches {
		struck := 0
		for _, v := range b.GroupStrikes {
			if v {
				struck++
			}
		}
		line := fmt.Sprintf("%2d. %s | %d records | %d/%d groups struck | %s",
			i+1, b.Name, len(b.Records), struck, len(b.GroupStrikes), b.Timestamp.Local().Format("1/2/2006 3:04 PM"))
		if b.LastUpdated != nil {
			line += " | updated " + b.LastUpdated.Local().Format("1/2/2006 3:04 PM")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", s.wrap(ansiDim, b.ID))
	}
}

// Renderer writes reports, batch lists and notifications to a writer. It
// implements controller.Renderer and controller.Notifier.
type Renderer struct {
	Style
	mu  sync.Mutex
	out io.Writer

	// ShowBatches controls whether batch snapshots are printed as they
	// arrive. One-shot commands leave it off.
	ShowBatches bool
}

// NewRenderer returns a renderer writing to out.
func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{Style: Style{Color: color}, out: out}
}

func (r *Renderer) RenderReport(records []batch.Record, strikes []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WriteReport(r.out, records, strikes)
}

func (r *Renderer) RenderBatches(batches []batch.Batch) {
	if !r.ShowBatches {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WriteBatches(r.out, batches)
}

func (r *Renderer) Notify(n controller.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := ansiGreen
	if n.Level == controller.LevelError {
		code = ansiRed
	}
	fmt.Fprintln(r.out, r.wrap(code, n.Message))
}
