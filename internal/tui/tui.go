// Package tui provides the interactive BubbleTea interface for browsing a
// compiled corpus.
//
// Layout:
//
//	┌─────────────────────────────────────┐
//	│  versum  corpus search              │  ← header
//	│  ❯ <query input>                    │  ← search bar
//	│  ─────────────────────────────────  │  ← divider
//	│  0.94  Section Two › ...            │  ← results
//	│        This paragraph belongs ...   │
//	│  ...                                │
//	│  ─────────────────────────────────  │  ← divider
//	│  [3 results]  ↑↓ enter  ^I  ^Q      │  ← status bar
//	└─────────────────────────────────────┘
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/screenager/versum/internal/query"
	"github.com/screenager/versum/internal/reader"
)

// ── Palette ──────────────────────────────────────────────────────────────────

var (
	colorAccent  = lipgloss.Color("#7C6AF7") // purple
	colorDim     = lipgloss.Color("#555555") // dark grey
	colorMuted   = lipgloss.Color("#888888") // mid grey
	colorText    = lipgloss.Color("#DDDDDD") // near-white
	colorSubdued = lipgloss.Color("#444444") // for dividers
	colorScore   = lipgloss.Color("#5ECEF5") // cyan for scores
	colorErr     = lipgloss.Color("#FF6B6B") // red
	colorGreen   = lipgloss.Color("#5AF078") // for "loaded"

	sTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	sAccent = lipgloss.NewStyle().Foreground(colorAccent)
	sDim    = lipgloss.NewStyle().Foreground(colorDim)
	sMuted  = lipgloss.NewStyle().Foreground(colorMuted)
	sScore  = lipgloss.NewStyle().Foreground(colorScore).Bold(true)
	sDir    = lipgloss.NewStyle().Foreground(colorMuted)
	sSnip   = lipgloss.NewStyle().Foreground(colorMuted)
	sErr    = lipgloss.NewStyle().Foreground(colorErr)
	sGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	sSel    = lipgloss.NewStyle().
		Background(lipgloss.Color("#1E1A3A")).
		Foreground(colorText)
	sHint = lipgloss.NewStyle().
		Foreground(colorDim).
		Background(lipgloss.Color("#111111"))
	sDivider = lipgloss.NewStyle().Foreground(colorSubdued)
)

// ── Spinner frames ────────────────────────────────────────────────────────────

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type spinTickMsg struct{}

func spinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return spinTickMsg{} })
}

// ── Messages ─────────────────────────────────────────────────────────────────

type mode int

const (
	modeSearch mode = iota
	modeInfo
	modePreview
)

type (
	searchResultMsg []query.SearchResult
	errMsg          struct{ err error }
	debounceMsg     struct {
		query string
		id    int
	}
)

// rankModes is the cycle order for the ctrl+r toggle.
var rankModes = []query.RankMode{query.RankNone, query.RankTFIDF, query.RankHybrid}

func nextRankMode(m query.RankMode) query.RankMode {
	for i, r := range rankModes {
		if r == m {
			return rankModes[(i+1)%len(rankModes)]
		}
	}
	return rankModes[0]
}

// ── Model ─────────────────────────────────────────────────────────────────────

// Model is the BubbleTea application model.
type Model struct {
	r          *reader.Reader
	input      textinput.Model
	results    []query.SearchResult
	cursor     int
	mode       mode
	err        error
	width      int
	height     int
	searching  bool
	spinFrame  int
	debounceID int
	lastQuery  string
	rank       query.RankMode
}

// New creates a new TUI model backed by the given Reader.
func New(r *reader.Reader) Model {
	ti := textinput.New()
	ti.Placeholder = "search the corpus…"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60
	ti.PromptStyle = sAccent
	ti.Prompt = "❯ "
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorText)

	return Model{
		r:     r,
		input: ti,
		mode:  modeSearch,
		rank:  query.RankTFIDF,
	}
}

// Init is the BubbleTea init hook.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, spinTick())
}

// Update processes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 8
		return m, nil

	case spinTickMsg:
		m.spinFrame = (m.spinFrame + 1) % len(spinnerFrames)
		return m, spinTick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			return m, tea.Quit

		case "ctrl+i":
			if m.mode != modeInfo {
				m.mode = modeInfo
				m.input.Blur()
			} else {
				m.mode = modeSearch
				m.input.Focus()
			}
			return m, nil

		case "ctrl+r":
			m.rank = nextRankMode(m.rank)
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.searching = true
				return m, searchCmd(m.r, q, m.rank)
			}
			return m, nil

		case "esc":
			m.mode = modeSearch
			m.input.Focus()
			m.err = nil
			return m, nil

		case "up", "ctrl+p":
			if m.mode == modeSearch && m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.mode == modeSearch && m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil

		case "enter":
			if m.mode == modeSearch && len(m.results) > 0 {
				m.mode = modePreview
				m.input.Blur()
			}
			return m, nil
		}

	case debounceMsg:
		if msg.id == m.debounceID && msg.query == m.input.Value() {
			if strings.TrimSpace(msg.query) == "" {
				m.searching = false
				m.results = nil
				return m, nil
			}
			m.searching = true
			m.lastQuery = msg.query
			return m, searchCmd(m.r, msg.query, m.rank)
		}
		return m, nil

	case searchResultMsg:
		m.searching = false
		m.results = []query.SearchResult(msg)
		m.cursor = 0
		m.err = nil
		return m, nil

	case errMsg:
		m.searching = false
		m.err = msg.err
		return m, nil
	}

	// Delegate to text input in search mode.
	if m.mode == modeSearch {
		prevVal := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != prevVal {
			m.debounceID++
			id := m.debounceID
			q := m.input.Value()
			return m, tea.Batch(cmd, debounceCmd(q, id, 280*time.Millisecond))
		}
		return m, cmd
	}

	return m, nil
}

// ── Views ─────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	switch m.mode {
	case modeInfo:
		return m.infoView()
	case modePreview:
		return m.previewView()
	default:
		return m.searchView()
	}
}

func (m Model) searchView() string {
	var b strings.Builder
	w := m.width
	divider := sDivider.Render(strings.Repeat("─", clamp(w-2, 10, 200)))

	// ── Header ───────────────────────────────────────────────────────────────
	left := "  " + sTitle.Render("versum") + "  " + sMuted.Render("corpus search")
	right := sDim.Render(fmt.Sprintf("%d spans · rank:%s", m.r.GetSpanCount(), m.rank))
	header := padBetween(left, right, w)
	fmt.Fprintln(&b, header)

	// ── Search bar ───────────────────────────────────────────────────────────
	fmt.Fprintln(&b, "  "+m.input.View())
	fmt.Fprintln(&b, "  "+divider)

	// ── Body ──────────────────────────────────────────────────────────────────
	if m.err != nil {
		fmt.Fprintln(&b, sErr.Render("  error: "+m.err.Error()))
	} else if m.searching {
		frame := spinnerFrames[m.spinFrame]
		fmt.Fprintln(&b, "  "+sAccent.Render(frame)+"  "+sMuted.Render("searching…"))
	} else if len(m.results) == 0 && m.input.Value() == "" {
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, sMuted.Render("  Start typing to search this corpus."))
		fmt.Fprintln(&b, sDim.Render("  Quoted phrases and multi-word queries both work: ")+sMuted.Render("\"section two\""))
	} else if len(m.results) == 0 {
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, sMuted.Render("  no results for ")+sAccent.Render("\""+m.lastQuery+"\""))
		fmt.Fprintln(&b, sDim.Render("  try a shorter query or fewer terms"))
	} else {
		bodyHeight := m.height - 7
		m.renderResults(&b, bodyHeight)
	}

	b.WriteString("\n  " + divider + "\n")
	m.renderStatusBar(&b)

	return b.String()
}

func (m *Model) renderResults(b *strings.Builder, maxRows int) {
	maxResults := maxRows / 2
	if maxResults < 1 {
		maxResults = 1
	}

	for i, res := range m.results {
		if i >= maxResults {
			remaining := len(m.results) - i
			fmt.Fprintf(b, "  %s\n", sDim.Render(fmt.Sprintf("  … %d more results", remaining)))
			break
		}

		sp, _ := m.r.GetSpan(res.SpanID)
		heading := strings.Join(sp.HeadingPath, " › ")
		score := fmt.Sprintf("%.2f", res.Score)

		snippet := sp.Text
		maxSnip := clamp(m.width-8, 20, 120)
		if len(snippet) > maxSnip {
			snippet = snippet[:maxSnip-1] + "…"
		}
		snippet = strings.Join(strings.Fields(snippet), " ")

		headingStr := sDir.Render(heading)
		if heading == "" {
			headingStr = sDir.Render(sp.ID)
		}
		line1 := fmt.Sprintf("  %s  %s", sScore.Render(score), headingStr)
		line2 := fmt.Sprintf("  %s  %s", sDim.Render("    "), sSnip.Render(snippet))

		if i == m.cursor {
			raw1 := stripStyle(score) + "  " + heading
			raw2 := "       " + snippet
			pad1 := clamp(m.width-len(raw1)-3, 0, m.width)
			pad2 := clamp(m.width-len(raw2)-3, 0, m.width)
			line1 = sSel.Render("  " + sScore.Render(score) + "  " + headingStr + strings.Repeat(" ", pad1))
			line2 = sSel.Render("  " + "       " + sSnip.Render(snippet) + strings.Repeat(" ", pad2))
		}

		fmt.Fprintln(b, line1)
		fmt.Fprintln(b, line2)
	}
}

func (m *Model) renderStatusBar(b *strings.Builder) {
	var left string
	if len(m.results) > 0 {
		left = sGreen.Render(fmt.Sprintf("  %d result", len(m.results)))
		if len(m.results) != 1 {
			left += sGreen.Render("s")
		}
	} else if m.err != nil {
		left = "  " + sErr.Render(m.err.Error())
	} else {
		left = sDim.Render("  no results")
	}

	right := sHint.Render("^r rank  ^i info  esc clear  ↑↓ nav  enter preview  ^q quit  ")
	fmt.Fprint(b, padBetween(left, right, m.width))
}

func (m Model) infoView() string {
	var b strings.Builder
	w := clamp(m.width, 10, 200)
	divider := sDivider.Render(strings.Repeat("─", w-2))

	mf := m.r.GetManifest()

	fmt.Fprintln(&b, "  "+sTitle.Render("versum")+" "+sMuted.Render("— corpus info"))
	fmt.Fprintln(&b, "  "+divider)
	fmt.Fprintln(&b, "")
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %-22s %s\n", sDim.Render(label), value)
	}
	row("id", sAccent.Render(mf.ID))
	row("title", sMuted.Render(mf.Title))
	row("source", sMuted.Render(mf.SourcePath))
	row("spans", sAccent.Render(fmt.Sprintf("%d", m.r.GetSpanCount())))
	if nm := m.r.GetNodeMap(); nm != nil {
		row("chapters", sAccent.Render(fmt.Sprintf("%d", len(nm.Chapters))))
		row("sections", sAccent.Render(fmt.Sprintf("%d", len(nm.Sections))))
	}
	if br := m.r.GetBuildReport(); br != nil {
		row("short spans", sMuted.Render(fmt.Sprintf("%d", br.Warnings.ShortSpans)))
		row("long spans", sMuted.Render(fmt.Sprintf("%d", br.Warnings.LongSpans)))
		row("duplicate spans", sMuted.Render(fmt.Sprintf("%d", br.Warnings.DuplicateSpans)))
	}
	row("compiler version", sMuted.Render(mf.Version))

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "  "+divider)
	fmt.Fprint(&b, sHint.Render("  esc back to search  ctrl+q quit"+strings.Repeat(" ", clamp(w-35, 0, 200))))
	return b.String()
}

func (m Model) previewView() string {
	var b strings.Builder
	w := clamp(m.width, 10, 200)
	divider := sDivider.Render(strings.Repeat("─", w-2))

	res := m.results[m.cursor]
	sp, _ := m.r.GetSpan(res.SpanID)
	heading := strings.Join(sp.HeadingPath, " › ")

	fmt.Fprintln(&b, "  "+sTitle.Render("versum")+" "+sMuted.Render("— preview"))
	fmt.Fprintln(&b, "  "+divider)
	fmt.Fprintln(&b, "")
	if heading != "" {
		fmt.Fprintln(&b, "  "+sDir.Render(heading))
	}
	fmt.Fprintln(&b, "  "+sDim.Render(sp.ID)+"  "+sScore.Render(fmt.Sprintf("score %.3f", res.Score)))
	fmt.Fprintln(&b, "")
	for _, line := range wrap(sp.Text, clamp(w-4, 20, 200)) {
		fmt.Fprintln(&b, "  "+sMuted.Render(line))
	}

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "  "+divider)
	fmt.Fprint(&b, sHint.Render("  esc back to search  ctrl+q quit"+strings.Repeat(" ", clamp(w-35, 0, 200))))
	return b.String()
}

// ── Commands ──────────────────────────────────────────────────────────────────

func debounceCmd(q string, id int, delay time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(delay)
		return debounceMsg{query: q, id: id}
	}
}

func searchCmd(r *reader.Reader, q string, rank query.RankMode) tea.Cmd {
	return func() tea.Msg {
		limit := 10
		results, err := r.Search(q, query.SearchOptions{Limit: &limit, Rank: rank})
		if err != nil {
			return errMsg{err}
		}
		return searchResultMsg(results)
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// padBetween pads left and right strings to fill width.
func padBetween(left, right string, width int) string {
	lv := visibleLen(left)
	rv := visibleLen(right)
	gap := width - lv - rv - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// visibleLen estimates printable character count (strips common ANSI sequences).
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, c := range s {
		if c == '\x1b' {
			inEsc = true
		}
		if inEsc {
			if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}

// stripStyle returns s unchanged; it removes no ANSI styling, and its one
// caller passes a string that was never styled.
func stripStyle(s string) string { return s }

// wrap greedily wraps text to width, splitting on spaces.
func wrap(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}
