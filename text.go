package xim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// LineSeparator terminates every line read by ReadText.
const LineSeparator = "\n"

// ReadText reads r line by line and joins the lines, each followed by
// LineSeparator. "\r\n" endings are normalized.
func ReadText(r io.Reader) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteString(LineSeparator)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// SendFile reads the whole of r as text and sends it to recipient.
func (m *Messenger) SendFile(ctx context.Context, recipient string, r io.Reader) error {
	content, err := ReadText(r)
	if err != nil {
		return fmt.Errorf("xim: read file: %w", err)
	}
	return m.Send(ctx, recipient, content)
}
