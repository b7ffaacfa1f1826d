// Package console is the terminal front end of the chat client. It reads
// intents from a line-oriented input, hands them to the conversation manager
// and prints snapshots of the result. Failures arrive over the event bus.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"ai-chatbot-client/internal/conversation"
	"ai-chatbot-client/internal/entity"
	"ai-chatbot-client/pkg/events"
)

// Conversation is the part of conversation.Manager the console drives.
type Conversation interface {
	Bootstrap(ctx context.Context) (*entity.User, error)
	Authenticate(ctx context.Context, name string) (*entity.User, error)
	Logout(ctx context.Context) error
	LoadThreads(ctx context.Context) error
	SelectThread(ctx context.Context, thread entity.ChatThread) error
	StartNewThread(ctx context.Context)
	SendMessage(ctx context.Context, text string) error
	Retry(ctx context.Context) error
	Snapshot() conversation.Snapshot
}

type Subscriber interface {
	Subscribe(ctx context.Context, eventType string) (<-chan events.Event, error)
}

type Console struct {
	conv  Conversation
	bus   Subscriber
	in    *bufio.Scanner
	out   *syncWriter
	width int
}

func New(conv Conversation, bus Subscriber, in io.Reader, out io.Writer) *Console {
	return &Console{
		conv:  conv,
		bus:   bus,
		in:    bufio.NewScanner(in),
		out:   &syncWriter{w: out},
		width: DefaultWidth,
	}
}

func (c *Console) SetWidth(width int) {
	if width > 0 {
		c.width = width
	}
}

var errQuit = errors.New("quit")

// Run drives the session until /quit, end of input or ctx cancellation.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.watch(ctx); err != nil {
		return err
	}

	user, err := c.conv.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if user != nil {
		fmt.Fprintf(c.out, "Welcome back, %s.\n", user.Name)
		c.showThreads()
	}

	for {
		if c.conv.Snapshot().User == nil {
			if !c.login(ctx) {
				return nil
			}
			c.showThreads()
			dim.Fprintln(c.out, "Type /help for commands.")
		}

		fmt.Fprint(c.out, c.prompt())
		line, ok := c.readLine()
		if !ok || ctx.Err() != nil {
			fmt.Fprintln(c.out)
			return nil
		}
		if err := c.handle(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
	}
}

func (c *Console) login(ctx context.Context) bool {
	for {
		fmt.Fprint(c.out, "Your name: ")
		name, ok := c.readLine()
		if !ok || ctx.Err() != nil {
			fmt.Fprintln(c.out)
			return false
		}
		user, err := c.conv.Authenticate(ctx, name)
		if err == nil {
			fmt.Fprintf(c.out, "Hello, %s.\n", user.Name)
			return true
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return c.send(ctx, func() error { return c.conv.SendMessage(ctx, line) })
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		c.help()
	case "/threads":
		if c.conv.LoadThreads(ctx) == nil {
			c.showThreads()
		}
	case "/open":
		c.open(ctx, arg)
	case "/new":
		c.conv.StartNewThread(ctx)
		dim.Fprintln(c.out, "New thread. Your next message starts it.")
	case "/retry":
		if c.conv.Snapshot().Draft == "" {
			dim.Fprintln(c.out, "Nothing to retry.")
			return nil
		}
		return c.send(ctx, func() error { return c.conv.Retry(ctx) })
	case "/whoami":
		if u := c.conv.Snapshot().User; u != nil {
			fmt.Fprintf(c.out, "%s (id %s)\n", u.Name, u.Id)
		}
	case "/logout":
		_ = c.conv.Logout(ctx)
		fmt.Fprintln(c.out, "Logged out.")
	default:
		RenderFailure(c.out, "Unknown command "+cmd+". Type /help.")
	}
	return nil
}

// send runs one send intent and prints the exchange it produced.
func (c *Console) send(ctx context.Context, intent func() error) error {
	before := c.conv.Snapshot()

	err := intent()
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrValidation):
		return nil
	case errors.Is(err, conversation.ErrSendInFlight):
		dim.Fprintln(c.out, "Still waiting for the previous reply.")
		return nil
	default:
		// reported through the failure event
		return nil
	}

	after := c.conv.Snapshot()
	if before.Selected == nil && after.Selected != nil {
		highlighted.Fprintf(c.out, "Started thread: %s\n", title(*after.Selected))
		RenderMessages(c.out, after.Messages, c.width)
		return nil
	}
	if n := len(after.Messages); n >= 2 {
		for _, m := range after.Messages[n-2:] {
			RenderMessage(c.out, m, c.width)
		}
	}
	return nil
}

// open selects by list position first, then by thread id.
func (c *Console) open(ctx context.Context, arg string) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		RenderFailure(c.out, "Usage: /open <number|id>")
		return
	}

	threads := c.conv.Snapshot().Threads
	var target *entity.ChatThread
	if n >= 1 && n <= int64(len(threads)) {
		target = &threads[n-1]
	} else {
		for i := range threads {
			if threads[i].Id == n {
				target = &threads[i]
				break
			}
		}
	}
	if target == nil {
		RenderFailure(c.out, fmt.Sprintf("No thread %d. Type /threads to list them.", n))
		return
	}

	highlighted.Fprintf(c.out, "── %s ──\n", title(*target))
	if c.conv.SelectThread(ctx, *target) == nil {
		RenderMessages(c.out, c.conv.Snapshot().Messages, c.width)
	}
}

func (c *Console) showThreads() {
	snap := c.conv.Snapshot()
	RenderThreads(c.out, snap.Threads, snap.Selected)
}

func (c *Console) prompt() string {
	snap := c.conv.Snapshot()
	if snap.Selected != nil {
		return fmt.Sprintf("[%s] > ", title(*snap.Selected))
	}
	return "[new thread] > "
}

func (c *Console) help() {
	fmt.Fprintln(c.out, `Commands:
  /threads          refresh and list threads
  /open <n|id>      open thread by list number or id
  /new              start a new thread
  /retry            resend the last unsent message
  /whoami           show the signed-in user
  /logout           forget the saved identity
  /help             show this help
  /quit             leave
Anything else is sent as a message.`)
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

// watch prints failures and the in-flight indicator as they are published.
func (c *Console) watch(ctx context.Context) error {
	failures, err := c.bus.Subscribe(ctx, events.TypeConversationFailure)
	if err != nil {
		return err
	}
	changes, err := c.bus.Subscribe(ctx, events.TypeConversationChanged)
	if err != nil {
		return err
	}

	go func() {
		sending := false
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-failures:
				if !ok {
					return
				}
				if msg, _ := e.Payload()["message"].(string); msg != "" {
					RenderFailure(c.out, msg)
				}
			case e, ok := <-changes:
				if !ok {
					return
				}
				now, _ := e.Payload()["sending"].(bool)
				if now && !sending {
					dim.Fprintln(c.out, "… waiting for reply")
				}
				sending = now
			}
		}
	}()
	return nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
