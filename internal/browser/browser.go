package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/membrowse/membrowse/internal/analysis"
	"github.com/membrowse/membrowse/internal/render"
)

// Screen represents the current active screen in the browser
type Screen string

const (
	ScreenRegions Screen = "regions"
	ScreenDetail  Screen = "detail"
)

// keyMap defines key bindings for the browser
type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open region"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the top-level browser model over a finished report
type Model struct {
	CurrentScreen Screen
	Report        *analysis.Report
	ELFPath       string

	cursor   int
	detail   *analysis.RegionUsage
	scroll   int
	width    int
	height   int
	helpView help.Model
	keys     keyMap
}

// New creates a browser over the given report
func New(report *analysis.Report, elfPath string) Model {
	return Model{
		CurrentScreen: ScreenRegions,
		Report:        report,
		ELFPath:       elfPath,
		helpView:      help.New(),
		keys:          defaultKeyMap(),
		width:         render.MaxContentWidth,
		height:        24,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.move(1)
		case key.Matches(msg, m.keys.Enter):
			if m.CurrentScreen == ScreenRegions && len(m.Report.Regions) > 0 {
				m.detail = m.Report.Regions[m.cursor]
				m.scroll = 0
				m.CurrentScreen = ScreenDetail
			}
		case key.Matches(msg, m.keys.Back):
			if m.CurrentScreen == ScreenDetail {
				m.CurrentScreen = ScreenRegions
			} else {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	switch m.CurrentScreen {
	case ScreenRegions:
		m.cursor += delta
		if m.cursor < 0 {
			m.cursor = 0
		}
		if max := len(m.Report.Regions) - 1; m.cursor > max && max >= 0 {
			m.cursor = max
		}
	case ScreenDetail:
		m.scroll += delta
		if m.scroll < 0 {
			m.scroll = 0
		}
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(render.TitleStyle.Render("MemBrowse"))
	b.WriteString("  ")
	b.WriteString(render.SubtitleStyle.Render(m.ELFPath))
	b.WriteString("\n\n")

	switch m.CurrentScreen {
	case ScreenRegions:
		b.WriteString(m.viewRegions())
	case ScreenDetail:
		b.WriteString(m.viewDetail())
	}

	b.WriteString("\n")
	b.WriteString(m.helpView.View(m.keys))
	return b.String()
}

func (m Model) viewRegions() string {
	var b strings.Builder
	for i, usage := range m.Report.Regions {
		region := usage.Region
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s%-14s %10s  used %10s  ",
			marker, region.Name,
			humanize.IBytes(region.Length),
			humanize.IBytes(usage.Used))
		b.WriteString(line)
		b.WriteString(render.UtilizationStyle(usage.Utilization).Render(
			fmt.Sprintf("%6.2f%%", usage.Utilization)))
		b.WriteString("\n")
	}
	if len(m.Report.Regions) == 0 {
		b.WriteString(render.MutedStyle.Render("  no memory regions"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	usage := m.detail
	region := usage.Region

	var lines []string
	lines = append(lines, render.RegionNameStyle.Render(region.Name)+
		render.MutedStyle.Render(fmt.Sprintf("  0x%08x - 0x%08x", region.Origin, region.End()-1)))
	lines = append(lines, "")
	lines = append(lines, render.TitleStyle.Render("Sections"))
	for _, sec := range m.Report.Sections {
		if sec.Region != region.Name {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-24s 0x%08x  %10s  %s",
			sec.Name, sec.Address, humanize.IBytes(sec.Size), sec.Type))
	}
	lines = append(lines, "")
	lines = append(lines, render.TitleStyle.Render("Largest symbols"))
	count := 0
	for _, sym := range largestSymbols(m.Report, region.Name) {
		src := sym.SourceFile
		if src == "" {
			src = "?"
		}
		lines = append(lines, fmt.Sprintf("  %-32s %10s  %s",
			displayName(sym.Name, sym.Demangled), humanize.IBytes(sym.Size),
			render.MutedStyle.Render(src)))
		count++
		if count >= 30 {
			break
		}
	}

	visible := m.height - 8
	if visible < 5 {
		visible = 5
	}
	if m.scroll > len(lines)-1 {
		m.scroll = len(lines) - 1
	}
	end := m.scroll + visible
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[m.scroll:end], "\n") + "\n"
}

func displayName(name, demangled string) string {
	if demangled != "" {
		name = demangled
	}
	if len(name) > 32 {
		return name[:29] + "..."
	}
	return name
}

func largestSymbols(report *analysis.Report, region string) []*symbolRow {
	var rows []*symbolRow
	for _, sym := range report.Symbols {
		if sym.Region != region || sym.Size == 0 {
			continue
		}
		rows = append(rows, &symbolRow{sym.Name, sym.Demangled, sym.Size, sym.SourceFile})
	}
	// Selection sort is plenty for a screenful.
	for i := 0; i < len(rows); i++ {
		maxAt := i
		for j := i + 1; j < len(rows); j++ {
			if rows[j].Size > rows[maxAt].Size {
				maxAt = j
			}
		}
		rows[i], rows[maxAt] = rows[maxAt], rows[i]
	}
	return rows
}

type symbolRow struct {
	Name       string
	Demangled  string
	Size       uint64
	SourceFile string
}

// Run launches the interactive browser and blocks until it exits
func Run(report *analysis.Report, elfPath string) error {
	p := tea.NewProgram(New(report, elfPath))
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("browser error: %w", err)
	}
	return nil
}
