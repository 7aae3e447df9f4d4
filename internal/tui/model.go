package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"large-file-man/internal/preflight"
	"large-file-man/internal/script"
	"large-file-man/internal/selection"
	"large-file-man/internal/store"
	"large-file-man/pkg/utils"
)

type status int

const (
	statusLoading status = iota
	statusReady
	statusPrompt
	statusDone
)

// Options configures the selection screen.
type Options struct {
	InventoryPath string
	Dialect       script.Dialect
	Token         string
	// ScriptPath is the suggested destination; empty means
	// supprime_fichiers.<ext> next to the inventory.
	ScriptPath string
}

type model struct {
	opts Options
	sp   spinner.Model
	in   textinput.Model

	st      status
	entries []store.Entry
	err     error
	notice  string

	// list view (custom rendering, not using bubbles/list)
	items        []item
	cursor       int
	scrollOffset int
	sortBy       string // "size" or "path"
	sortReverse  bool

	// the operator's picks; the generator only ever sees a clone
	sel          selection.Set
	selectedSize int64

	written string
	check   preflight.Summary

	home  string
	termW int
	termH int

	showHelp bool
}

func newModel(opts Options) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	in := textinput.New()
	in.Prompt = "Script: "
	in.CharLimit = 4096
	if opts.Dialect == "" {
		opts.Dialect = script.DefaultDialect()
	}
	home, _ := os.UserHomeDir()
	return model{
		opts:        opts,
		sp:          sp,
		in:          in,
		st:          statusLoading,
		items:       []item{},
		sortBy:      "size",
		sortReverse: true,
		sel:         selection.New(),
		home:        home,
	}
}

// Run starts the interactive selection screen over the inventory at
// opts.InventoryPath.
func Run(opts Options) error {
	p := tea.NewProgram(newModel(opts))
	_, err := p.Run()
	return err
}

// messages
type loadedMsg struct {
	entries []store.Entry
	err     error
}

type writtenMsg struct {
	path  string
	check preflight.Summary
	err   error
}

func loadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := store.Load(path)
		return loadedMsg{entries: entries, err: err}
	}
}

func writeCmd(sel selection.Set, entries []store.Entry, dest string, opts Options) tea.Cmd {
	return func() tea.Msg {
		text, err := script.Generate(sel, script.Options{Dialect: opts.Dialect, Token: opts.Token})
		if err != nil {
			return writtenMsg{err: err}
		}
		check := preflight.Check(sel, entries)
		if err := script.WriteFile(dest, text, opts.Dialect); err != nil {
			return writtenMsg{err: err}
		}
		return writtenMsg{path: dest, check: check}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.sp.Tick, loadCmd(m.opts.InventoryPath))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.st == statusPrompt {
			return m.updatePrompt(msg)
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.st == statusDone {
			m.st = statusReady
			m.notice = ""
			return m, nil
		}
		if m.st != statusReady {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m.adjustScroll()
			}
		case " ":
			m.toggleSelected()
		case "a":
			m.toggleAll()
		case "s":
			m.toggleSortField()
			m.applySort()
		case "r":
			m.sortReverse = !m.sortReverse
			m.applySort()
		case "g", "enter":
			if m.sel.Len() == 0 {
				m.notice = "Aucun fichier sélectionné !"
				return m, nil
			}
			m.notice = ""
			m.st = statusPrompt
			m.in.SetValue(m.defaultScriptPath())
			m.in.CursorEnd()
			return m, m.in.Focus()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.termW, m.termH = msg.Width, msg.Height
		m.in.Width = msg.Width - len(m.in.Prompt) - 1
		return m, nil

	case spinner.TickMsg:
		if m.st != statusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return m, cmd

	case loadedMsg:
		m.st = statusReady
		if msg.err != nil && !errors.Is(msg.err, store.ErrSourceMissing) {
			m.err = msg.err
			return m, nil
		}
		if errors.Is(msg.err, store.ErrSourceMissing) {
			m.notice = fmt.Sprintf("Inventaire introuvable : %s (lancez d'abord scan)", m.opts.InventoryPath)
		}
		m.entries = msg.entries
		for _, e := range msg.entries {
			m.items = append(m.items, item{path: e.Path, disp: m.displayPath(e.Path), size: e.Size})
		}
		m.applySort()
		return m, nil

	case writtenMsg:
		m.st = statusDone
		m.written = ""
		if msg.err != nil {
			m.notice = "Impossible de créer le script : " + msg.err.Error()
			return m, nil
		}
		m.written = msg.path
		m.check = msg.check
		return m, nil
	}
	return m, nil
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.in.Blur()
		m.st = statusReady
		return m, nil
	case "enter":
		dest := strings.TrimSpace(m.in.Value())
		if dest == "" {
			return m, nil
		}
		m.in.Blur()
		return m, writeCmd(m.sel.Clone(), m.entries, dest, m.opts)
	}
	var cmd tea.Cmd
	m.in, cmd = m.in.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Erreur : %v\nPress q to quit.\n", m.err)
	}
	switch m.st {
	case statusLoading:
		return fmt.Sprintf("Loading %s %s\n", m.opts.InventoryPath, m.sp.View())
	case statusReady:
		base := m.headerText() + m.renderList()
		if m.notice != "" {
			base += "\n" + noticeStyle.Render(m.notice) + "\n"
		}
		if m.showHelp {
			base += "\n" + m.helpText()
		}
		return base
	case statusPrompt:
		return fmt.Sprintf("Generate a deletion script for %d file(s) (~%s)\n\n%s\n\nenter to write, esc to go back\n",
			m.sel.Len(), utils.HumanizeBytes(m.selectedSize), m.in.View())
	case statusDone:
		if m.written == "" {
			return noticeStyle.Render(m.notice) + "\nPress any key to return.\n"
		}
		s := fmt.Sprintf("Script généré : %s\n%d file(s), %s to free.\n",
			m.written, len(m.check.Targets), utils.HumanizeBytes(m.check.Bytes))
		for _, f := range m.check.Missing {
			s += fmt.Sprintf(" - missing %s: %v\n", f.Path, f.Err)
		}
		s += "The script was not run. Press q to quit or any key to return.\n"
		return s
	default:
		return ""
	}
}

// list helpers
type item struct {
	path string
	disp string
	size int64
}

func (m *model) renderList() string {
	if len(m.items) == 0 {
		return "No files in the inventory.\n"
	}

	var b strings.Builder
	visibleHeight := m.visibleHeight()

	start := m.scrollOffset
	end := start + visibleHeight
	if end > len(m.items) {
		end = len(m.items)
	}

	for i := start; i < end; i++ {
		it := m.items[i]
		sel := m.sel.Contains(it.path)

		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render(">") + " "
		}

		mark := markStyle.Render("[ ]")
		pathStr := it.disp
		if sel {
			mark = markSelectedStyle.Render("[x]")
			pathStr = pathStyleSelected.Render(it.disp)
		}

		sizeStr := sizeColorStyle(it.size).Render(fmt.Sprintf("%8s", utils.HumanizeBytesCompact(it.size)))
		b.WriteString(prefix + mark + " " + sizeStr + " " + pathStr + "\n")
	}

	return b.String()
}

func (m *model) visibleHeight() int {
	headerLines := strings.Count(m.headerText(), "\n") + 1
	h := m.termH - headerLines - 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) adjustScroll() {
	h := m.visibleHeight()
	if m.cursor >= m.scrollOffset+h {
		m.scrollOffset = m.cursor - h + 1
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
}

func (m *model) toggleSelected() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	it := m.items[m.cursor]
	on := !m.sel.Contains(it.path)
	m.sel.Toggle(it.path, on)
	if on {
		m.selectedSize += it.size
	} else {
		m.selectedSize -= it.size
	}
}

// toggleAll selects every item, or clears the selection when all are picked.
func (m *model) toggleAll() {
	if m.sel.Len() == len(m.items) {
		m.sel = selection.New()
		m.selectedSize = 0
		return
	}
	m.selectedSize = 0
	for _, it := range m.items {
		m.sel.Add(it.path)
		m.selectedSize += it.size
	}
}

func (m *model) toggleSortField() {
	if m.sortBy == "size" {
		m.sortBy = "path"
	} else {
		m.sortBy = "size"
	}
}

func (m *model) applySort() {
	sort.SliceStable(m.items, func(i, j int) bool {
		if m.sortBy == "path" {
			if m.sortReverse {
				return m.items[i].disp > m.items[j].disp
			}
			return m.items[i].disp < m.items[j].disp
		}
		if m.sortReverse {
			return m.items[i].size > m.items[j].size
		}
		return m.items[i].size < m.items[j].size
	})
}

// displayPath shortens paths under the home directory to ~.
func (m *model) displayPath(p string) string {
	if m.home == "" {
		return p
	}
	if rel, err := filepath.Rel(m.home, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return p
}

func (m *model) defaultScriptPath() string {
	if m.opts.ScriptPath != "" {
		return m.opts.ScriptPath
	}
	return filepath.Join(filepath.Dir(m.opts.InventoryPath), script.DefaultFileName(m.opts.Dialect))
}

func (m *model) headerText() string {
	return fmt.Sprintf("Files: %d  Selected: %d (%s)  | Keys: ? help, ↑↓ move, space select, a all, s sort, r reverse, g script, q quit\n\n",
		len(m.items), m.sel.Len(), utils.HumanizeBytes(m.selectedSize))
}

func (m *model) helpText() string {
	lines := []string{
		"Help (press ? to close):",
		"  ↑/k, ↓/j  Move cursor",
		"  space     Toggle selection",
		"  a         Select all / none",
		"  s         Toggle sort field (size/path)",
		"  r         Reverse sort",
		"  g/enter   Generate deletion script",
		"  q/esc     Quit",
	}
	return lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder()).Render(strings.Join(lines, "\n"))
}

var (
	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))            // purple
	markStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))           // gray
	markSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true) // green
	pathStyleSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))             // green
	noticeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true) // orange
)

// Choose color for size: dark red > light red > orange > yellow > green > light gray > dark gray
func sizeColorStyle(b int64) lipgloss.Style {
	const (
		MB = 1024 * 1024
		GB = 1024 * MB
	)
	switch {
	case b >= 8*GB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("160")) // dark red
	case b >= 4*GB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // light red
	case b >= 2*GB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // orange
	case b >= 1*GB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")) // yellow
	case b >= 256*MB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46")) // green
	case b >= 64*MB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("250")) // light gray
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // dark gray
	}
}
