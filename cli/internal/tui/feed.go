// ABOUTME: Bubbletea feed browser over the incremental artwork loader
// ABOUTME: Fetches the next page as the cursor nears the end; errors stop paging until retried

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/artfolio-web/cli/internal/tui/icons"
	"github.com/markalston/artfolio-web/cli/internal/tui/styles"
	"github.com/markalston/artfolio-web/feed"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

// Layout constants
const (
	prefetchMargin = 5  // rows from the end at which the next page is requested
	chromeHeight   = 10 // header, detail pane, status and help lines
	minListHeight  = 3
	defaultWidth   = 80
)

// pageMsg carries the outcome of one LoadMore or Retry.
type pageMsg struct {
	result feed.Result
}

// Feed is the root model of `artfolio feed`.
type Feed struct {
	ctx      context.Context
	loader   *feed.Loader
	query    string
	spinner  spinner.Model
	viewport viewport.Model

	items   []models.Artwork
	cursor  int
	loading bool
	ended   bool
	err     error
	width   int
}

// NewFeed browses loader. query only labels the header. Fetches run with ctx.
func NewFeed(ctx context.Context, loader *feed.Loader, query string) *Feed {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Accent)),
	)
	return &Feed{
		ctx:      ctx,
		loader:   loader,
		query:    query,
		spinner:  sp,
		viewport: viewport.New(defaultWidth, minListHeight*4),
		width:    defaultWidth,
	}
}

// Init implements tea.Model
func (f *Feed) Init() tea.Cmd {
	return tea.Batch(f.spinner.Tick, f.loadMore())
}

// Update implements tea.Model
func (f *Feed) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.resize(msg.Width, msg.Height)
		return f, f.maybeLoad()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return f, tea.Quit
		case "down", "j":
			f.move(1)
		case "up", "k":
			f.move(-1)
		case "pgdown", "f", " ":
			f.move(f.viewport.Height)
		case "pgup", "b":
			f.move(-f.viewport.Height)
		case "home", "g":
			f.move(-len(f.items))
		case "end", "G":
			f.move(len(f.items))
		case "r":
			return f, f.retry()
		}
		return f, f.maybeLoad()

	case pageMsg:
		f.apply(msg.result)
		return f, f.maybeLoad()

	case spinner.TickMsg:
		var cmd tea.Cmd
		f.spinner, cmd = f.spinner.Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f *Feed) loadMore() tea.Cmd {
	if f.loading || f.ended || f.err != nil {
		return nil
	}
	f.loading = true
	loader, ctx := f.loader, f.ctx
	return func() tea.Msg {
		return pageMsg{result: loader.LoadMore(ctx)}
	}
}

func (f *Feed) retry() tea.Cmd {
	if f.loading || f.err == nil {
		return nil
	}
	f.loading = true
	f.err = nil
	loader, ctx := f.loader, f.ctx
	return func() tea.Msg {
		return pageMsg{result: loader.Retry(ctx)}
	}
}

// maybeLoad requests the next page when the cursor is close to the end or
// the list does not fill the screen yet.
func (f *Feed) maybeLoad() tea.Cmd {
	if f.cursor >= len(f.items)-prefetchMargin || len(f.items) < f.viewport.Height {
		return f.loadMore()
	}
	return nil
}

// apply folds a fetch result into the model. The loader's own state is the
// source of truth for items and whether more may follow.
func (f *Feed) apply(res feed.Result) {
	f.loading = false
	st := f.loader.State()
	f.items = st.Items
	f.ended = !st.HasMore && !st.IsError
	if st.IsError {
		f.err = res.Err
		if f.err == nil {
			f.err = services.ErrFetchFailed
		}
	}
	f.render()
}

func (f *Feed) resize(width, height int) {
	f.width = width
	f.viewport.Width = width
	f.viewport.Height = max(height-chromeHeight, minListHeight)
	f.render()
}

func (f *Feed) move(delta int) {
	if len(f.items) == 0 {
		return
	}
	f.cursor = min(max(f.cursor+delta, 0), len(f.items)-1)
	f.render()
}

// render rebuilds the list and scrolls the cursor into view.
func (f *Feed) render() {
	rows := make([]string, len(f.items))
	for i, a := range f.items {
		line := truncate(a.Title, f.width/2) + "  " + styles.Owner.Render("by "+a.Owner.Username)
		if i == f.cursor {
			rows[i] = styles.SelectedItem.Render(line)
		} else {
			rows[i] = styles.Item.Render(line)
		}
	}
	f.viewport.SetContent(strings.Join(rows, "\n"))

	switch {
	case f.cursor < f.viewport.YOffset:
		f.viewport.SetYOffset(f.cursor)
	case f.cursor >= f.viewport.YOffset+f.viewport.Height:
		f.viewport.SetYOffset(f.cursor - f.viewport.Height + 1)
	}
}

// View implements tea.Model
func (f *Feed) View() string {
	var b strings.Builder

	heading := "Explore"
	if f.query != "" {
		heading = fmt.Sprintf("Search %q", f.query)
	}
	b.WriteString(styles.Title.Render("ArtFolio") + "  " + styles.Subtitle.Render(heading))
	b.WriteString("\n\n")

	if len(f.items) == 0 && f.ended {
		b.WriteString(styles.Notice.Render("  " + icons.Warning.String() + " No artworks found."))
	} else {
		b.WriteString(f.viewport.View())
	}
	b.WriteString("\n")

	if len(f.items) > 0 {
		b.WriteString(f.detail())
		b.WriteString("\n")
	}
	b.WriteString(f.status())
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{
		styles.Key("j/k", "move"),
		styles.Key("pgup/pgdn", "page"),
		styles.Key("r", icons.Refresh.String()+" retry"),
		styles.Key("q", icons.Quit.String()+" quit"),
	}, "  "))
	return b.String()
}

func (f *Feed) detail() string {
	a := f.items[f.cursor]
	lines := []string{
		styles.Value.Render(a.Title),
		styles.Owner.Render("by " + a.Owner.Username + " on " + a.CreatedAt.Format("2 Jan 2006")),
	}
	if a.Description != "" {
		lines = append(lines, truncate(a.Description, f.width-6))
	}
	if a.ImageURL != "" {
		lines = append(lines, styles.Subtitle.Render(truncate(a.ImageURL, f.width-6)))
	}
	return styles.Detail.Width(max(f.width-2, 20)).Render(strings.Join(lines, "\n"))
}

func (f *Feed) status() string {
	count := fmt.Sprintf("%d artworks", len(f.items))
	switch {
	case f.loading:
		return f.spinner.View() + " Loading more artworks..."
	case f.err != nil:
		return styles.Error.Render(icons.Critical.String()+" "+services.UserMessage(f.err)) +
			"  " + styles.Help.Render(icons.Refresh.String()+" press r to retry")
	case f.ended:
		return styles.OK.Render(icons.CheckOK.String()+" You've reached the end") + "  " + styles.Help.Render(count)
	default:
		return styles.Help.Render(icons.Info.String() + " " + count)
	}
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
