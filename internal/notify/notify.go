// Package notify keeps the notifications shown to the operator after
// console operations and echoes them to the log and a terminal.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultLimit bounds how many notifications a Center keeps.
const DefaultLimit = 20

type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
}

// Center stores notifications newest first.
type Center struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	logger *logrus.Logger
	out    io.Writer
	now    func() time.Time
}

// NewCenter builds a Center logging through logger and printing to out.
// Either may be nil.
func NewCenter(logger *logrus.Logger, out io.Writer) *Center {
	return &Center{limit: DefaultLimit, logger: logger, out: out, now: time.Now}
}

// SetLimit changes the number of notifications kept, older ones are
// dropped right away.
func (c *Center) SetLimit(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = n
	if len(c.items) > n {
		c.items = c.items[:n]
	}
}

func (c *Center) Success(title, message string) Notification {
	return c.push(Notification{Level: LevelSuccess, Title: title, Message: message})
}

func (c *Center) Info(title, message string) Notification {
	return c.push(Notification{Level: LevelInfo, Title: title, Message: message})
}

// Error records a failure. The engine's error payload, when err carries
// one, ends up in Detail.
func (c *Center) Error(title, message string, err error) Notification {
	n := Notification{Level: LevelError, Title: title, Message: message}
	if err != nil {
		if n.Message == "" {
			n.Message = err.Error()
		}
		n.Detail = detailOf(err)
	}
	return c.push(n)
}

func detailOf(err error) string {
	var apiErr *hasura.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.InternalMessage(); msg != "" {
			return msg
		}
		return apiErr.Error()
	}
	return err.Error()
}

func (c *Center) push(n Notification) Notification {
	id, err := uuid.NewV4()
	if err == nil {
		n.ID = id.String()
	}
	c.mu.Lock()
	n.Time = c.now()
	items := make([]Notification, 0, c.limit)
	items = append(items, n)
	items = append(items, c.items...)
	if len(items) > c.limit {
		items = items[:c.limit]
	}
	c.items = items
	c.mu.Unlock()

	c.log(n)
	c.print(n)
	return n
}

func (c *Center) log(n Notification) {
	if c.logger == nil {
		return
	}
	entry := c.logger.WithField("title", n.Title)
	if n.Detail != "" {
		entry = entry.WithField("detail", n.Detail)
	}
	msg := n.Message
	if msg == "" {
		msg = n.Title
	}
	switch n.Level {
	case LevelError:
		entry.Error(msg)
	case LevelSuccess:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}

func (c *Center) print(n Notification) {
	if c.out == nil {
		return
	}
	var paint *color.Color
	switch n.Level {
	case LevelSuccess:
		paint = color.New(color.FgGreen)
	case LevelError:
		paint = color.New(color.FgRed, color.Bold)
	default:
		paint = color.New(color.FgCyan)
	}
	line := paint.Sprint(n.Title)
	if n.Message != "" && n.Message != n.Title {
		line += ": " + n.Message
	}
	fmt.Fprintln(c.out, line)
	if n.Detail != "" && n.Detail != n.Message {
		fmt.Fprintln(c.out, color.New(color.Faint).Sprint("  "+n.Detail))
	}
}

// List returns a copy of the kept notifications, newest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification{}, c.items...)
}

func (c *Center) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead flags one notification as read. It reports whether id was
// found.
func (c *Center) MarkRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return true
		}
	}
	return false
}

func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Read = true
	}
}

// Clear drops every notification.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
