// internal/notify/render.go
package notify

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/serum-sender/internal/events"
	"github.com/rovshanmuradov/serum-sender/internal/types"
)

var (
	cyan   = lipgloss.Color("#00E5FF")
	green  = lipgloss.Color("#2AFFAA")
	red    = lipgloss.Color("#FF5555")
	yellow = lipgloss.Color("#FFB500")
	muted  = lipgloss.Color("#6C7280")
)

// Styles - стили блока уведомления по уровню важности.
type Styles struct {
	Container lipgloss.Style
	Title     map[types.Severity]lipgloss.Style
	Line      lipgloss.Style
	TxID      lipgloss.Style
}

// DefaultStyles возвращает стили терминального вывода.
func DefaultStyles() Styles {
	title := lipgloss.NewStyle().Bold(true)
	return Styles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1),
		Title: map[types.Severity]lipgloss.Style{
			types.SeverityInfo:    title.Foreground(cyan),
			types.SeveritySuccess: title.Foreground(green),
			types.SeverityWarning: title.Foreground(yellow),
			types.SeverityError:   title.Foreground(red),
		},
		Line: lipgloss.NewStyle(),
		TxID: lipgloss.NewStyle().Foreground(muted),
	}
}

var icons = map[types.Icon]string{
	types.IconSuccess: "✓",
	types.IconInfo:    "i",
	types.IconError:   "✗",
	types.IconLoading: "…",
}

// Render отрисовывает снимок уведомления. Скрытое уведомление - пустая строка.
func (st Styles) Render(s State) string {
	if !s.Visible {
		return ""
	}
	titleStyle, ok := st.Title[s.Severity]
	if !ok {
		titleStyle = st.Title[types.SeverityInfo]
	}

	lines := []string{titleStyle.Render(s.Title)}
	for _, n := range s.Description {
		line := st.Line.Render(fmt.Sprintf("%s %s", icons[n.Icon], n.Value))
		if n.TxID != "" {
			line += " " + st.TxID.Render(n.TxID)
		}
		lines = append(lines, line)
	}
	return st.Container.Render(strings.Join(lines, "\n"))
}

// Printer печатает уведомления из шины событий в w.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
	last   []types.Notice
}

func NewPrinter(w io.Writer, styles Styles) *Printer {
	return &Printer{w: w, styles: styles}
}

// Handle реализует events.Handler для AlertChanged.
// Блок печатается при смене описания: оно выставляется последним в фазе.
func (p *Printer) Handle(_ context.Context, event events.Event) error {
	e, ok := event.(events.AlertChangedEvent)
	if !ok || !e.Visible || len(e.Description) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Equal(p.last, e.Description) {
		return nil
	}
	p.last = append([]types.Notice(nil), e.Description...)

	out := p.styles.Render(State{
		Title:       e.Title,
		Description: e.Description,
		Visible:     e.Visible,
		Severity:    e.Severity,
	})
	_, err := fmt.Fprintln(p.w, out)
	return err
}
