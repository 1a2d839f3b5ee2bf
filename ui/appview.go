package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"blac/model"
	"blac/session"
	"blac/speech"
)

type inputMode int

const (
	modeChat inputMode = iota
	modeAttach
)

// AppOptions carries display-only details about the running assistant.
type AppOptions struct {
	ModelName string
	Version   string
}

// AppView is the chat screen. It renders session events and turns key
// presses into session calls; it never mutates the log itself.
type AppView struct {
	sess        *session.Session
	events      <-chan session.Event
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc

	modelName string
	version   string

	viewport       viewport.Model
	textarea       textarea.Model
	attachInput    textinput.Model
	loadingSpinner spinner.Model

	mode        inputMode
	messages    []model.ChatMessage
	rendered    map[string]string
	streaming   string
	loading     bool
	options     model.ToggleOptions
	pending     []model.Attachment
	suggestions []string

	voice     speech.Readiness
	listening bool

	status    string
	statusErr bool
	statusAt  time.Time

	width  int
	height int
	ready  bool
}

func NewAppView(sess *session.Session, opts AppOptions) AppView {
	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Enter sends; Alt+Enter inserts a newline.
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	ai := textinput.New()
	ai.Prompt = "Image: "
	ai.Placeholder = "path to a png, jpeg, gif, bmp or webp file"
	ai.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	events, unsubscribe := sess.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())

	return AppView{
		sess:           sess,
		events:         events,
		unsubscribe:    unsubscribe,
		ctx:            ctx,
		cancel:         cancel,
		modelName:      opts.ModelName,
		version:        opts.Version,
		viewport:       viewport.New(0, 0),
		textarea:       ta,
		attachInput:    ai,
		loadingSpinner: sp,
		messages:       sess.Messages(),
		rendered:       make(map[string]string),
		options:        sess.Options(),
		voice:          sess.VoiceReadiness(),
		listening:      sess.Listening(),
	}
}

type sessionEventMsg struct {
	event session.Event
	ok    bool
}

type turnDoneMsg struct {
	err error
}

type voiceStartedMsg struct {
	err error
}

type clearStatusMsg struct {
	at time.Time
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return sessionEventMsg{event: ev, ok: ok}
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(a.events))
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width != a.width {
			a.rendered = make(map[string]string)
		}
		a.width = msg.Width
		a.height = msg.Height

		// title, options bar, voice line, textarea (3) and footer
		a.viewport.Width = a.width
		a.viewport.Height = max(a.height-7, 1)
		a.textarea.SetWidth(a.width)
		a.attachInput.Width = max(a.width-10, 10)

		a.ready = true
		a.refreshViewport()
		return a, nil

	case sessionEventMsg:
		if !msg.ok {
			return a, nil
		}
		cmd := a.handleEvent(msg.event)
		return a, tea.Batch(cmd, waitForEvent(a.events))

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		a.refreshViewport()
		return a, cmd

	case turnDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrBusy) {
				return a, a.flash("Still waiting for the previous reply", false)
			}
			return a, a.flash(msg.err.Error(), true)
		}
		return a, nil

	case voiceStartedMsg:
		a.voice = a.sess.VoiceReadiness()
		a.listening = a.sess.Listening()
		if msg.err != nil {
			return a, a.flash(msg.err.Error(), true)
		}
		return a, nil

	case clearStatusMsg:
		if msg.at.Equal(a.statusAt) {
			a.status = ""
			a.statusErr = false
		}
		return a, nil

	case tea.KeyMsg:
		if a.mode == modeAttach {
			return a.handleAttachKey(msg)
		}
		return a.handleChatKey(msg)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a *AppView) handleEvent(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.EventMessageAppended:
		a.messages = a.sess.Messages()
		if !ev.Message.IsUser {
			a.streaming = ""
		}
		a.refreshViewport()

	case session.EventLoadingChanged:
		a.loading = ev.Loading
		a.streaming = ""
		a.refreshViewport()
		if a.loading {
			return a.loadingSpinner.Tick
		}

	case session.EventOptionsChanged:
		a.options = ev.Options

	case session.EventStreamChunk:
		a.streaming += ev.Chunk
		a.refreshViewport()

	case session.EventError:
		return a.flash(ev.Err.Error(), true)

	case session.EventVoiceState:
		a.listening = ev.Listening
		a.voice = ev.Readiness

	case session.EventDownloadProgress:
		a.voice = ev.Readiness
		if ev.Err != nil {
			return a.flash("Speech model download failed: "+ev.Err.Error(), true)
		}
		if ev.Readiness.Ready() {
			return a.flash("Speech model ready. Press Ctrl+V to dictate.", false)
		}

	case session.EventCleared:
		a.messages = nil
		a.streaming = ""
		a.rendered = make(map[string]string)
		a.refreshViewport()
		return a.flash("Started a new chat", false)
	}
	return nil
}

func (a AppView) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		a.sess.StopVoiceInput()
		a.cancel()
		a.unsubscribe()
		return a, tea.Quit

	case "enter":
		return a.submit()

	case "ctrl+t":
		a.options = a.sess.ToggleThinkMode()
		return a, nil

	case "ctrl+s":
		a.options = a.sess.ToggleSearch()
		return a, nil

	case "ctrl+k":
		a.options = a.sess.ToggleCodeMode()
		return a, nil

	case "ctrl+o":
		a.mode = modeAttach
		a.attachInput.Reset()
		a.suggestions = imageSuggestions("", 5)
		a.textarea.Blur()
		return a, a.attachInput.Focus()

	case "ctrl+v":
		if a.sess.Listening() {
			a.sess.StopVoiceInput()
			a.listening = false
			return a, nil
		}
		sess, ctx := a.sess, a.ctx
		return a, func() tea.Msg {
			return voiceStartedMsg{err: sess.StartVoiceInput(ctx)}
		}

	case "ctrl+y":
		for i := len(a.messages) - 1; i >= 0; i-- {
			if !a.messages[i].IsUser {
				if err := copyToClipboard(a.messages[i].Content); err != nil {
					return a, a.flash("Copy failed: "+err.Error(), true)
				}
				return a, a.flash("Copied last reply", false)
			}
		}
		return a, a.flash("Nothing to copy yet", false)

	case "ctrl+l":
		a.sess.Clear()
		a.pending = nil
		return a, nil

	case "pgup":
		a.viewport.PageUp()
		return a, nil

	case "pgdown":
		a.viewport.PageDown()
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

// submit sends the typed text with pending attachments. With no text, the
// pending images are summarized instead.
func (a AppView) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.textarea.Value())
	if text == "" && len(a.pending) == 0 {
		return a, nil
	}

	sess, ctx := a.sess, a.ctx
	attachments := a.pending
	a.pending = nil
	a.textarea.Reset()

	if text == "" {
		var imgs []model.ImageAttachment
		for _, att := range attachments {
			if img, ok := att.(model.ImageAttachment); ok && img.Pixels != nil {
				imgs = append(imgs, img)
			}
		}
		return a, func() tea.Msg {
			pixels := make([]image.Image, 0, len(imgs))
			for _, img := range imgs {
				pixels = append(pixels, img.Pixels)
			}
			_, err := sess.ProcessImages(ctx, pixels)
			return turnDoneMsg{err: err}
		}
	}

	return a, func() tea.Msg {
		_, err := sess.Send(ctx, text, attachments...)
		return turnDoneMsg{err: err}
	}
}

func (a AppView) handleAttachKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		a.mode = modeChat
		a.suggestions = nil
		a.attachInput.Blur()
		return a, a.textarea.Focus()

	case "tab":
		if len(a.suggestions) > 0 {
			a.attachInput.SetValue(a.suggestions[0])
			a.attachInput.CursorEnd()
			a.suggestions = imageSuggestions(a.attachInput.Value(), 5)
		}
		return a, nil

	case "enter":
		att, err := loadAttachment(a.attachInput.Value())
		a.mode = modeChat
		a.suggestions = nil
		a.attachInput.Blur()
		focus := a.textarea.Focus()
		if err != nil {
			return a, tea.Batch(focus, a.flash(err.Error(), true))
		}
		a.pending = append(a.pending, att)
		return a, tea.Batch(focus, a.flash("Attached "+att.Source, false))
	}

	var cmd tea.Cmd
	a.attachInput, cmd = a.attachInput.Update(msg)
	a.suggestions = imageSuggestions(a.attachInput.Value(), 5)
	return a, cmd
}

// flash shows a status message that clears itself after a few seconds.
func (a *AppView) flash(text string, isErr bool) tea.Cmd {
	a.status = text
	a.statusErr = isErr
	at := time.Now()
	a.statusAt = at
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{at: at}
	})
}

func (a *AppView) refreshViewport() {
	if !a.ready {
		return
	}
	content := renderTimeline(a.messages, a.rendered, a.width)
	if a.loading {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		body := a.loadingSpinner.View()
		if a.streaming != "" {
			body = a.streaming + "▋"
		}
		content += fmt.Sprintf("%s %s\n%s\n", timestamp, AssistantStyle.Render("Assistant"), body)
	}
	a.viewport.SetContent(content)
	a.viewport.GotoBottom()
}

func (a AppView) optionsBar() string {
	return strings.Join([]string{
		toggleLabel("Think (Ctrl+T)", a.options.ThinkMode),
		toggleLabel("Search (Ctrl+S)", a.options.RealTimeSearch),
		toggleLabel("Code (Ctrl+K)", a.options.CodeMode),
	}, "  ")
}

func (a AppView) voiceLine() string {
	var voice string
	switch {
	case a.listening:
		voice = VoiceStyle.Render("● Listening (Ctrl+V to stop)")
	case a.voice.Status == speech.StatusDownloading:
		voice = DimStyle.Render(fmt.Sprintf("Downloading speech model %d%%", a.voice.Progress))
	case a.voice.Ready():
		voice = DimStyle.Render("Voice ready (Ctrl+V)")
	default:
		voice = DimStyle.Render("Voice: Ctrl+V downloads the speech model")
	}

	if len(a.pending) > 0 {
		names := make([]string, len(a.pending))
		for i, att := range a.pending {
			names[i] = att.SourceRef()
		}
		voice += DimStyle.Render(" | Attached: " + strings.Join(names, ", "))
	}

	if a.status != "" {
		style := StatusStyle
		if a.statusErr {
			style = ErrorStyle
		}
		voice += " | " + style.Render(a.status)
	}
	return voice
}

func (a AppView) View() string {
	if !a.ready {
		return "Initializing..."
	}

	title := TitleStyle.Render("blac")
	if a.version != "" {
		title += DimStyle.Render(" " + a.version)
	}
	if a.modelName != "" {
		title += DimStyle.Render(" | " + a.modelName)
	}
	if id := a.sess.ID(); len(id) >= 8 {
		title += DimStyle.Render(" | session " + id[:8])
	}

	input := a.textarea.View()
	if a.mode == modeAttach {
		lines := []string{a.attachInput.View()}
		for _, s := range a.suggestions {
			lines = append(lines, DimStyle.Render("  "+s))
		}
		lines = append(lines, DimStyle.Render("Tab complete  Enter attach  Esc cancel"))
		input = strings.Join(lines, "\n")
	}

	footer := StatusStyle.Render(FormatFooter(
		"Enter", "Send",
		"Ctrl+O", "Attach",
		"Ctrl+V", "Voice",
		"Ctrl+Y", "Copy",
		"Ctrl+L", "Clear",
		"Esc", "Quit",
	))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		a.viewport.View(),
		a.optionsBar(),
		a.voiceLine(),
		input,
		footer,
	)
}
