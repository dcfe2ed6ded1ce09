package channel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"clawchat/internal/bus"
	"clawchat/internal/chat"
	"clawchat/internal/domain"
)

// nameColumn is the display width of the session name column.
const nameColumn = 33

// eventsShown caps the /events listing.
const eventsShown = 20

func (c *CLI) printSessionLine() {
	st := c.styles()
	sess, ok := c.store.CurrentSession()
	if !ok {
		c.println(st.dim.Render("No session yet, your first message starts one. Agent: " + c.agentLabel()))
		return
	}
	c.println(st.dim.Render(fmt.Sprintf("Session %s (%s) with %s", sess.Name, sess.ID, c.agentLabel())))
}

func (c *CLI) printSessions() {
	st := c.styles()
	shown := c.store.DisplayedSessions()
	if len(shown) == 0 {
		c.println(st.dim.Render("No sessions."))
		return
	}
	current := c.store.Snapshot().CurrentSession
	now := time.Now()
	var b strings.Builder
	for i, sess := range shown {
		mark := " "
		if sess.ID == current {
			mark = "*"
		}
		name := runewidth.FillRight(runewidth.Truncate(sess.Name, nameColumn, "…"), nameColumn)
		line := strings.TrimRight(fmt.Sprintf("%s%2d. %s %-14s %s", mark, i+1, name, sess.AgentID, chat.FormatTime(sess.UpdatedAt, now)), " ")
		if sess.ID == current {
			line = st.current.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

// printEvents lists the most recent store events of one type, or of every
// type except streaming deltas when no type is given.
func (c *CLI) printEvents(eventType string) {
	st := c.styles()
	var events []bus.Event
	if eventType == "" {
		for _, e := range c.store.Bus().Replay("*", time.Time{}) {
			if e.Type != bus.EventMessageDelta {
				events = append(events, e)
			}
		}
	} else {
		events = c.store.Bus().Replay(eventType, time.Time{})
	}
	if len(events) == 0 {
		c.println(st.dim.Render("No events."))
		return
	}
	if len(events) > eventsShown {
		events = events[len(events)-eventsShown:]
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s %-18s %s\n", e.Timestamp.Format("15:04:05"), e.Type, payloadSummary(e.Payload))
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

func payloadSummary(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(p[k])
		if runewidth.StringWidth(v) > 40 {
			v = runewidth.Truncate(v, 40, "…")
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

func (c *CLI) printAgents() {
	selected := c.store.Snapshot().SelectedAgentID
	var b strings.Builder
	for _, a := range c.store.Agents() {
		mark := " "
		if a.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %s %-14s %s\n", mark, a.Identity.Emoji, a.ID, a.Identity.Theme)
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

func (c *CLI) printModels() {
	selected := c.store.Snapshot().SelectedModel
	var b strings.Builder
	for _, m := range c.store.Models() {
		mark := " "
		if m.ID == selected {
			mark = "*"
		}
		vision := ""
		if m.SupportsVision {
			vision = " [vision]"
		}
		fmt.Fprintf(&b, "%s %-40s %s%s\n", mark, m.ID, m.Name, vision)
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

func (c *CLI) printHistory() {
	st := c.styles()
	msgs := c.store.Messages()
	if len(msgs) == 0 {
		c.println(st.dim.Render("(empty chat)"))
		return
	}
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser:
			text := m.Content.String()
			if n := len(m.Images); n > 0 {
				text += st.dim.Render(fmt.Sprintf(" [%d image(s)]", n))
			}
			c.println(st.user.Render("You> ") + text)
		default:
			if m.Thinking != "" {
				c.println(st.thinking.Render(m.Thinking))
			}
			if m.Error != "" {
				c.println(st.err.Render(m.Content.String()))
				continue
			}
			c.println(st.assistant.Render(string(m.Role)+"> ") + m.Content.String())
		}
	}
}

func (c *CLI) printFiles() {
	st := c.styles()
	fb := c.store.Snapshot().Files
	c.println(st.header.Render("/" + strings.Join(fb.Path, "/")))
	if len(fb.Items) == 0 {
		c.println(st.dim.Render("(empty)"))
		return
	}
	var b strings.Builder
	for _, it := range fb.Items {
		if it.IsDir() {
			fmt.Fprintf(&b, "  %s/\n", it.Name)
			continue
		}
		fmt.Fprintf(&b, "  %-40s %s\n", it.Name, chat.FormatFileSize(it.Size))
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

func (c *CLI) printPreview() {
	snap := c.store.Snapshot()
	p := snap.Files.Preview
	if p == nil {
		return
	}
	st := newStyles(snap.Theme)
	c.println(st.header.Render("── " + p.Item.Path))
	switch {
	case p.IsImage:
		c.println(st.dim.Render(fmt.Sprintf("[image, %d bytes encoded]", len(p.Content))))
	case p.IsMarkdown && c.markdown:
		c.println(renderMarkdown(p.Content, snap.Theme, c.wrap))
	default:
		c.println(p.Content)
	}
	c.store.CloseFilePreview()
}

func (c *CLI) printStatus(ctx context.Context) {
	st := c.styles()
	status, err := c.store.FetchStatus(ctx)
	if err != nil {
		c.println(st.err.Render("Gateway error: " + status.Error))
		return
	}
	line := "Gateway " + string(status.Status)
	if status.Gateway != nil {
		line += fmt.Sprintf(" on port %d", status.Gateway.Port)
	}
	if status.NgrokURL != "" {
		line += ", public URL " + status.NgrokURL
	}
	c.println(st.success.Render(line))
}

func (c *CLI) printSchedules(ctx context.Context) {
	st := c.styles()
	jobs, err := c.store.FetchSchedules(ctx)
	if err != nil {
		c.println(st.err.Render(err.Error()))
		return
	}
	if len(jobs) == 0 {
		c.println(st.dim.Render("No scheduled jobs."))
		return
	}
	var b strings.Builder
	for _, j := range jobs {
		state := "on "
		if !j.Enabled {
			state = "off"
		}
		fmt.Fprintf(&b, "[%s] %-24s %-16s next %s\n", state, j.Name, j.Schedule, j.NextRun)
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

func (c *CLI) printChannels(ctx context.Context) {
	st := c.styles()
	channels, err := c.store.FetchChannels(ctx)
	if err != nil {
		c.println(st.err.Render(err.Error()))
		return
	}
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		ch := channels[name]
		state := "disabled"
		if ch.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(&b, "%-12s %-8s %d account(s)\n", name, state, ch.AccountCount)
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}
