package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/trickstertwo/xim"
)

var (
	errQuit        = errors.New("quit")
	errNoRecipient = errors.New("no recipient, use /to <name>")
	errNoDraft     = errors.New("nothing to send, use /open <path> first")
)

const helpText = `commands:
  /name <name>      set your username
  /to <recipient>   choose who plain lines are sent to
  /open <path>      load a text file as the draft
  /send             send the draft
  /opensend <path>  load a text file and send it
  /stats            show messenger metrics
  /quit             leave
anything else is sent to the current recipient`

// shell turns terminal lines into messenger calls.
type shell struct {
	m         xim.API
	con       *consoleSink
	recipient string
	draft     string
	hasDraft  bool
}

func newShell(m xim.API, con *consoleSink) *shell {
	return &shell{m: m, con: con}
}

// Run executes lines from in until EOF, /quit or ctx cancellation.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := s.Exec(ctx, sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.con.println(styleFail, "! %v", err)
		}
	}
	return sc.Err()
}

// Exec runs a single input line.
func (s *shell) Exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		if s.recipient == "" {
			return errNoRecipient
		}
		return s.m.Send(ctx, s.recipient, line)
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "name":
		return s.m.SetUsername(arg)
	case "to":
		if arg == "" {
			return &xim.ValidationError{Field: "recipient", Reason: "must not be empty"}
		}
		s.recipient = arg
		s.con.println(styleInfo, "* talking to %s", arg)
		return nil
	case "open":
		return s.open(arg)
	case "send":
		return s.sendDraft(ctx)
	case "opensend":
		if err := s.open(arg); err != nil {
			return err
		}
		return s.sendDraft(ctx)
	case "stats":
		s.con.println(styleInfo, "%s", s.stats(ctx))
		return nil
	case "help":
		s.con.println(styleInfo, "%s", helpText)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command /%s, try /help", cmd)
	}
}

// open replaces the draft with the file's text. A failed read keeps the old draft.
func (s *shell) open(path string) error {
	if path == "" {
		return errors.New("usage: /open <path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	text, err := xim.ReadText(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	s.draft, s.hasDraft = text, true
	s.con.println(styleInfo, "* loaded %s (%d bytes)", path, len(text))
	return nil
}

func (s *shell) sendDraft(ctx context.Context) error {
	if !s.hasDraft {
		return errNoDraft
	}
	if s.recipient == "" {
		return errNoRecipient
	}
	if err := s.m.Send(ctx, s.recipient, s.draft); err != nil {
		return err
	}
	s.draft, s.hasDraft = "", false
	return nil
}

func (s *shell) stats(ctx context.Context) string {
	h := s.m.Health(ctx)
	mt := s.m.GetMetrics()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	name, _ := s.m.CurrentUsername()
	table.Append([]string{"username", name})
	table.Append([]string{"recipient", s.recipient})
	table.Append([]string{"health", h.Status})
	table.Append([]string{"sent", strconv.FormatUint(mt.Sent, 10)})
	table.Append([]string{"delivered", strconv.FormatUint(mt.Delivered, 10)})
	table.Append([]string{"failed", strconv.FormatUint(mt.Failed, 10)})
	table.Append([]string{"received", strconv.FormatUint(mt.Received, 10)})
	table.Append([]string{"rejected", strconv.FormatUint(mt.Rejected, 10)})
	table.Append([]string{"errors", strconv.FormatUint(mt.Errors, 10)})
	table.Append([]string{"avg delivery ms", strconv.FormatFloat(mt.AvgDeliveryTimeMs, 'f', 2, 64)})
	table.Render()
	return strings.TrimRight(buf.String(), "\n")
}
