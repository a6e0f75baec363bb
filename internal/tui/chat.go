package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"shop-chatter/internal/chat"
	"shop-chatter/internal/history"
	"shop-chatter/internal/shopapi"
	"shop-chatter/internal/ui"
)

const (
	defaultWidth        = 100
	defaultHeight       = 40
	inputCharLimit      = 500
	inputHeightReserved = 3
	headerHeight        = 2
	minContentHeight    = 8
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const helpLine = "/category NAME • /price MIN MAX • /buy ID • /reset • /history • Esc quit"

// Conversation is what the chat screen drives. *chat.Controller implements it.
type Conversation interface {
	SendMessage(ctx context.Context, text string) error
	Purchase(ctx context.Context, productID int64) error
	ResetConversation()
	LoadHistory(ctx context.Context) error
	SetCategory(category string)
	SetPriceRange(minPrice, maxPrice float64) error
	Filters() chat.Filters
	Messages() []history.Message
	Products() []shopapi.Product
	Product(id int64) (shopapi.Product, bool)
	OnMessage(fn func(history.Message))
}

// Run shows the chat screen until the user quits.
func Run(ctx context.Context, conv Conversation, user string, categories []string) error {
	program := tea.NewProgram(NewModel(ctx, conv, user, categories), tea.WithAltScreen())
	conv.OnMessage(func(history.Message) { program.Send(lineMsg{}) })
	_, err := program.Run()
	return err
}

type (
	// lineMsg signals that the transcript grew.
	lineMsg struct{}
	// turnDoneMsg carries the result of a send or purchase.
	turnDoneMsg struct{ err error }
	// historyMsg carries the result of a history reload.
	historyMsg struct{ err error }
)

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx        context.Context
	conv       Conversation
	user       string
	categories []string

	input textinput.Model
	view  viewport.Model

	// busy is set while a turn started from this screen is outstanding.
	busy      bool
	notice    string
	noticeErr bool

	width  int
	height int
}

func NewModel(ctx context.Context, conv Conversation, user string, categories []string) Model {
	input := textinput.New()
	input.Placeholder = "What are you looking for?"
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 3
	input.Prompt = ""

	m := Model{
		ctx:        ctx,
		conv:       conv,
		user:       user,
		categories: categories,
		input:      input,
		view:       viewport.New(defaultWidth, defaultHeight-inputHeightReserved-headerHeight),
		width:      defaultWidth,
		height:     defaultHeight,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			if cmd := m.submit(text); cmd != nil {
				cmds = append(cmds, cmd)
			}
			m.refresh()
			return m, tea.Batch(cmds...)
		case tea.KeyUp:
			m.view.LineUp(1)
		case tea.KeyDown:
			m.view.LineDown(1)
		case tea.KeyPgUp:
			m.view.ViewUp()
		case tea.KeyPgDown:
			m.view.ViewDown()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case lineMsg:
		m.refresh()

	case turnDoneMsg:
		m.busy = false
		if errors.Is(msg.err, chat.ErrTurnInProgress) {
			m.setNotice("Still waiting for the previous reply.", true)
		} else if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		}
		m.refresh()

	case historyMsg:
		if errors.Is(msg.err, chat.ErrTurnInProgress) {
			m.setNotice("Still waiting for the previous reply.", true)
		} else if msg.err != nil {
			m.setNotice("Could not load chat history: "+shopapi.UserMessage(msg.err, "backend unavailable"), true)
		} else {
			m.setNotice("Chat history loaded.", false)
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit handles one line of input. Plain text starts a search turn;
// input while a turn is outstanding is dropped with a notice.
func (m *Model) submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	m.notice = ""
	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}
	if m.busy {
		m.setNotice("Still waiting for the previous reply.", true)
		return nil
	}
	m.busy = true
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		return turnDoneMsg{err: conv.SendMessage(ctx, text)}
	}
}

func (m *Model) command(text string) tea.Cmd {
	fields := strings.Fields(text)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/category":
		if len(args) == 0 {
			m.setNotice("Categories: all, "+strings.Join(m.categories, ", "), false)
			return nil
		}
		m.conv.SetCategory(strings.Join(args, " "))
		if c := m.conv.Filters().Category; c != "" {
			m.setNotice("Category set to "+c+".", false)
		} else {
			m.setNotice("Showing all categories.", false)
		}
		return nil

	case "/price":
		if len(args) != 2 {
			m.setNotice("Usage: /price MIN MAX", true)
			return nil
		}
		lo, err1 := strconv.ParseFloat(args[0], 64)
		hi, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			m.setNotice("Usage: /price MIN MAX", true)
			return nil
		}
		if err := m.conv.SetPriceRange(lo, hi); err != nil {
			m.setNotice("The minimum must be between 0 and the maximum.", true)
			return nil
		}
		m.setNotice(fmt.Sprintf("Price range set to %s - %s.", ui.FormatPrice(lo), ui.FormatPrice(hi)), false)
		return nil

	case "/buy":
		if len(args) != 1 {
			m.setNotice("Usage: /buy ID", true)
			return nil
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			m.setNotice("Usage: /buy ID", true)
			return nil
		}
		p, ok := m.conv.Product(id)
		if !ok {
			m.setNotice(fmt.Sprintf("Product %d is not in the current results.", id), true)
			return nil
		}
		if p.Stock <= 0 {
			m.setNotice(p.Name+" is out of stock.", true)
			return nil
		}
		if m.busy {
			m.setNotice("Still waiting for the previous reply.", true)
			return nil
		}
		m.busy = true
		conv, ctx := m.conv, m.ctx
		return func() tea.Msg {
			return turnDoneMsg{err: conv.Purchase(ctx, id)}
		}

	case "/reset":
		m.conv.ResetConversation()
		m.setNotice("Started a new conversation.", false)
		return nil

	case "/history":
		if m.busy {
			m.setNotice("Still waiting for the previous reply.", true)
			return nil
		}
		conv, ctx := m.conv, m.ctx
		return func() tea.Msg {
			return historyMsg{err: conv.LoadHistory(ctx)}
		}

	case "/help":
		m.setNotice(helpLine, false)
		return nil

	default:
		m.setNotice("Unknown command "+name+". Try /help.", true)
		return nil
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	contentHeight := height - inputHeightReserved - headerHeight
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	m.view.Width = width
	m.view.Height = contentHeight
	m.input.Width = width - 3
	m.refresh()
}

// refresh rebuilds the transcript pane from the conversation.
func (m *Model) refresh() {
	var b strings.Builder
	for _, msg := range m.conv.Messages() {
		if msg.Sender == history.SenderUser {
			b.WriteString(ui.Styles.Bold.Render("You"))
		} else {
			b.WriteString(ui.Styles.Accent.Render("Assistant"))
		}
		b.WriteString(" ")
		b.WriteString(ui.Styles.Dim.Render(msg.Timestamp.Local().Format("15:04")))
		b.WriteString("\n")
		b.WriteString(wrapText(msg.Text, m.width))
		b.WriteString("\n\n")
	}
	if products := m.conv.Products(); len(products) > 0 {
		b.WriteString(ui.RenderProducts(products))
		b.WriteString("\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m Model) header() string {
	f := m.conv.Filters()
	category := f.Category
	if category == "" {
		category = "all"
	}
	status := fmt.Sprintf("%s • category: %s • price: %s - %s",
		m.user, category, ui.FormatPrice(f.MinPrice), ui.FormatPrice(f.MaxPrice))
	if m.busy {
		status += " • waiting for reply..."
	}
	return ui.Styles.Dim.Render(status)
}

func (m Model) View() string {
	var inputView string
	if m.busy {
		inputView = ui.Styles.Dim.Render("> waiting for reply...")
	} else {
		inputView = promptStyle.Render("> ") + m.input.View()
	}

	footer := ui.Styles.Dim.Render(helpLine)
	if m.notice != "" {
		style := noticeStyle
		if m.noticeErr {
			style = errorStyle
		}
		footer = style.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.header(), "", m.view.View(), "", inputView, footer)
}

// wrapText wraps every line of text to maxWidth display cells.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 10 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, maxWidth int) string {
	if runewidth.StringWidth(line) <= maxWidth {
		return line
	}
	var out, cur strings.Builder
	width := 0
	for _, r := range line {
		rw := runewidth.RuneWidth(r)
		if width+rw > maxWidth && width > 0 {
			out.WriteString(cur.String())
			out.WriteString("\n")
			cur.Reset()
			width = 0
		}
		cur.WriteRune(r)
		width += rw
	}
	out.WriteString(cur.String())
	return out.String()
}
