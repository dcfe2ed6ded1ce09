package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/chat"
	"clawchat/internal/domain"
	"clawchat/internal/metrics"
)

// CLI implements domain.Channel for interactive terminal chat.
type CLI struct {
	store    *chat.Store
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	spinner  bool
	markdown bool
	wrap     int
	editing  bool
	history  string

	outMu     sync.Mutex
	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
	replying  bool // header for the current reply already printed
	cancel    func()
}

type CLIConfig struct {
	Store    *chat.Store
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
	Spinner  bool // animate while waiting for the first token
	Markdown bool // render markdown previews with glamour
	WordWrap int

	// LineEditing reads stdin through a terminal line editor instead of In.
	LineEditing bool
	HistoryFile string
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		store:    cfg.Store,
		logger:   cfg.Logger,
		in:       cfg.In,
		out:      cfg.Out,
		spinner:  cfg.Spinner,
		markdown: cfg.Markdown,
		wrap:     cfg.WordWrap,
		editing:  cfg.LineEditing,
		history:  cfg.HistoryFile,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until the input ends, /quit
// is entered or the context is cancelled.
func (c *CLI) Start(ctx context.Context) error {
	eb := c.store.Bus()
	deltaID := eb.On(bus.EventMessageDelta, c.onDelta)
	toasts, stopToasts := eb.Subscribe(bus.EventToastShown, 16)
	c.cancel = func() {
		eb.Off(bus.EventMessageDelta, deltaID)
		stopToasts()
	}
	var wg sync.WaitGroup
	defer func() {
		_ = c.Stop()
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range toasts {
			msg, _ := e.Payload["message"].(string)
			typ, _ := e.Payload["type"].(string)
			c.println(c.styles().toast(domain.Toast{Message: msg, Type: domain.ToastType(typ)}))
		}
	}()

	c.println(c.styles().header.Render("ClawChat") + " " + c.styles().dim.Render("Type a message and press Enter. /help lists commands."))
	c.printSessionLine()

	input := c.newReader()
	defer func() {
		if err := input.Close(); err != nil {
			c.logger.Warn("save input history failed", "err", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		raw, err := input.ReadLine(c.styles().user.Render("You> "))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := c.command(ctx, line); quit {
				c.logger.Info("user requested quit")
				return nil
			}
			continue
		}

		c.send(ctx, line)
	}
}

func (c *CLI) newReader() lineReader {
	if c.editing {
		return newEditReader(c.history)
	}
	return newScanReader(c.in, c.out, &c.outMu)
}

// Stop detaches from the store. Safe to call more than once.
func (c *CLI) Stop() error {
	c.stopThinking()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

func (c *CLI) send(ctx context.Context, text string) {
	c.store.SetInput(text)
	c.outMu.Lock()
	c.replying = false
	c.outMu.Unlock()
	c.startThinking()

	err := c.store.SendMessage(ctx)
	c.stopThinking()

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return
	case errors.Is(err, chat.ErrBusy):
		c.println(c.styles().err.Render("A reply is still streaming."))
		return
	case err != nil:
		c.logger.Debug("send failed", "err", err)
		msgs := c.store.Messages()
		if n := len(msgs); n > 0 && msgs[n-1].Error != "" {
			c.println(c.styles().err.Render(msgs[n-1].Content.String()))
			return
		}
		c.println(c.styles().err.Render(err.Error()))
		return
	}
	c.println("")
}

// onDelta prints streamed tokens as they arrive.
func (c *CLI) onDelta(e bus.Event) {
	c.stopThinking()
	content, _ := e.Payload["content"].(string)
	kind, _ := e.Payload["kind"].(string)
	st := c.styles()

	c.outMu.Lock()
	defer c.outMu.Unlock()
	if !c.replying {
		c.replying = true
		_, _ = fmt.Fprint(c.out, "\r\033[K")
		_, _ = fmt.Fprintln(c.out, st.assistant.Render(c.agentLabel()+">"))
	}
	if kind == string(domain.StreamThinking) {
		_, _ = fmt.Fprint(c.out, st.thinking.Render(content))
		return
	}
	_, _ = fmt.Fprint(c.out, content)
}

// command runs a slash command and reports whether the REPL should exit.
func (c *CLI) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	st := c.styles()

	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		c.println(helpText)
	case "/new":
		sess := c.store.CreateSession(ctx, arg)
		c.println(st.success.Render("Started " + sess.ID + " with " + c.agentLabel()))
	case "/sessions":
		c.printSessions()
	case "/switch":
		c.switchSession(ctx, arg)
	case "/agent":
		if arg == "" {
			c.printAgents()
			break
		}
		if !c.store.SelectAgent(ctx, arg) {
			c.println(st.err.Render("Unknown agent: " + arg))
			break
		}
		c.println(st.success.Render("Agent: " + c.agentLabel()))
	case "/model":
		if arg == "" {
			c.printModels()
			break
		}
		if !c.store.SelectModel(arg) {
			c.println(st.err.Render("Unknown model: " + arg))
			break
		}
		c.println(st.success.Render("Model: " + c.store.SelectedModelName()))
	case "/refresh":
		if err := c.store.FetchSessions(ctx); err != nil {
			c.println(st.err.Render(err.Error()))
			break
		}
		c.printSessions()
	case "/history":
		c.printHistory()
	case "/files":
		if err := c.store.NavigateFiles(ctx, arg); err == nil {
			c.printFiles()
		}
	case "/up":
		if err := c.store.NavigateUp(ctx); err == nil {
			c.printFiles()
		}
	case "/open":
		if arg == "" {
			c.println(st.err.Render("Usage: /open <name>"))
			break
		}
		if err := c.store.OpenPath(ctx, arg); err == nil {
			c.printPreview()
		}
	case "/theme":
		theme := c.store.ToggleTheme(ctx)
		c.println(c.styles().success.Render("Theme: " + theme))
	case "/image":
		c.attach(arg)
	case "/clear":
		c.store.ClearChat(ctx)
		c.println(st.dim.Render("Chat cleared."))
	case "/status":
		c.printStatus(ctx)
	case "/schedules":
		c.printSchedules(ctx)
	case "/channels":
		c.printChannels(ctx)
	case "/events":
		c.printEvents(arg)
	case "/metrics":
		metrics.BusRetained.Set(int64(c.store.Bus().HistoryLen()))
		c.outMu.Lock()
		_ = metrics.Collector.Render(c.out)
		c.outMu.Unlock()
	default:
		c.println(st.err.Render("Unknown command " + name + ", try /help"))
	}
	return false
}

const helpText = `Commands:
  /new [agent]        start a new chat
  /sessions           list sessions
  /refresh            reload sessions from the gateway
  /switch <n|id|key>  switch to a session
  /history            print the current chat
  /agent [id]         list or select agents
  /model [id]         list or select models
  /files [path]       browse the agent workspace
  /up                 go to the parent directory
  /open <name>        preview a file
  /image <path>       attach an image to the next message
  /clear              clear the current chat
  /theme              toggle dark/light
  /status             gateway status
  /schedules          cron jobs
  /channels           messaging channels
  /events [type]      recent store events
  /metrics            client counters
  /quit               exit`

func (c *CLI) switchSession(ctx context.Context, arg string) {
	st := c.styles()
	if arg == "" {
		c.println(st.err.Render("Usage: /switch <n|id|key>"))
		return
	}
	// A small number picks from the /sessions listing.
	if n, err := strconv.Atoi(arg); err == nil {
		shown := c.store.DisplayedSessions()
		if n >= 1 && n <= len(shown) {
			arg = shown[n-1].ID
		}
	}
	if err := c.store.SwitchSession(ctx, arg); err != nil {
		c.println(st.err.Render(err.Error()))
		return
	}
	c.printSessionLine()
	c.printHistory()
}

func (c *CLI) attach(path string) {
	st := c.styles()
	if path == "" {
		c.println(st.err.Render("Usage: /image <path>"))
		return
	}
	ok, err := c.store.AddImageFile(path)
	switch {
	case err != nil:
		c.println(st.err.Render(err.Error()))
	case !ok:
		c.println(st.err.Render("Not an image: " + path))
	default:
		c.println(st.success.Render(fmt.Sprintf("Attached %s (%d pending)", path, len(c.store.Snapshot().Images))))
	}
}

func (c *CLI) styles() styles {
	return newStyles(c.store.Snapshot().Theme)
}

func (c *CLI) agentLabel() string {
	id := c.store.Snapshot().SelectedAgentID
	if a, ok := c.store.Agent(id); ok {
		return strings.TrimSpace(a.Identity.Emoji + " " + a.Name)
	}
	return id
}

func (c *CLI) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}

func (c *CLI) startThinking() {
	if !c.spinner {
		return
	}
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	stop := c.thinkStop
	go func() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.outMu.Lock()
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				c.outMu.Unlock()
				i++
			}
		}
	}()
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}
