// Package chat provides a terminal chat front-end for the query server.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agrintel/agri-intel-be/types"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type answerMsg string

type answerErr struct{ error }

// Client posts questions to the query server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Ask sends one question and returns the server's answer.
func (c *Client) Ask(question string) (string, error) {
	body, err := json.Marshal(types.QueryRequest{Text: question})
	if err != nil {
		return "", err
	}
	resp, err := c.http.Post(c.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return "", fmt.Errorf("server error: %s", errResp.Error)
		}
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var queryResp types.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return "", fmt.Errorf("invalid server response: %w", err)
	}
	return queryResp.Response, nil
}

type model struct {
	client    *Client
	textArea  textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	history   []types.Message
	isLoading bool
	err       error
	width     int
	height    int
}

func initialModel(client *Client) *model {
	ta := textarea.New()
	ta.Placeholder = "Ask about crops, prices or market reports..."
	ta.Focus()
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(80, 20)

	return &model{
		client:   client,
		textArea: ta,
		spinner:  s,
		viewport: vp,
	}
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			question := strings.TrimSpace(m.textArea.Value())
			if question == "" || m.isLoading {
				break
			}
			m.history = append(m.history, types.Message{Role: "user", Content: question})
			m.textArea.Reset()
			m.isLoading = true
			m.err = nil
			m.refreshViewport()
			return m, tea.Batch(m.spinner.Tick, m.askCmd(question))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.textArea.SetWidth(msg.Width - 2)
		m.refreshViewport()

	case answerMsg:
		m.isLoading = false
		m.history = append(m.history, types.Message{Role: "assistant", Content: string(msg)})
		m.refreshViewport()
		return m, nil

	case answerErr:
		m.isLoading = false
		m.err = msg.error
		m.refreshViewport()
		return m, nil
	}

	m.textArea, cmd = m.textArea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.client.Ask(question)
		if err != nil {
			return answerErr{err}
		}
		return answerMsg(answer)
	}
}

func (m *model) refreshViewport() {
	var b strings.Builder
	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			b.WriteString(userStyle.Render("You: "))
		default:
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *model) View() string {
	status := ""
	if m.isLoading {
		status = m.spinner.View() + " thinking..."
	}
	return fmt.Sprintf(
		"%s\n%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.textArea.View(),
		helpStyle.Render("enter: send  esc: quit"),
	)
}

// Run starts the interactive chat session against the given server URL. It
// blocks until the user quits. The transcript lives only in memory.
func Run(serverURL string) error {
	p := tea.NewProgram(initialModel(NewClient(serverURL)), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
