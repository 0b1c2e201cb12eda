package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xim"
	"github.com/trickstertwo/xim/adapter/memory"
)

func init() {
	color.Enable = false
}

type harness struct {
	sh  *shell
	con *consoleSink
	buf *bytes.Buffer
	m   *xim.Messenger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	buf := &bytes.Buffer{}
	con := newConsoleSink(buf)
	m, err := buildMessenger(Config{Channel: memory.ChannelName, SendTimeout: time.Second}, con, xlog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return &harness{sh: newShell(m, con), con: con, buf: buf, m: m}
}

func (h *harness) output() string {
	h.con.mu.Lock()
	defer h.con.mu.Unlock()
	return h.buf.String()
}

func (h *harness) waitOutput(t *testing.T, substr string) {
	t.Helper()
	assert.Eventually(t, func() bool { return strings.Contains(h.output(), substr) },
		2*time.Second, 5*time.Millisecond, "output never contained %q:\n%s", substr, h.output())
}

func TestShell_LoopbackChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.sh.Exec(ctx, "/name alice"))
	h.waitOutput(t, "* you are now alice")

	require.NoError(t, h.sh.Exec(ctx, "/to alice"))
	require.NoError(t, h.sh.Exec(ctx, "hello me"))
	h.waitOutput(t, "<alice> hello me")
	h.waitOutput(t, "-> alice: delivered")
}

func TestShell_UnreachableRecipientIsReported(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.sh.Exec(ctx, "/name alice"))
	require.NoError(t, h.sh.Exec(ctx, "/to bob"))
	require.NoError(t, h.sh.Exec(ctx, "are you there"))
	h.waitOutput(t, "-> bob: xim: delivery failed: memory: recipient unreachable")
}

func TestShell_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.sh.Exec(ctx, "hi"), errNoRecipient)
	assert.ErrorIs(t, h.sh.Exec(ctx, "/send"), errNoDraft)
	assert.ErrorIs(t, h.sh.Exec(ctx, "/to"), xim.ErrValidation)
	assert.ErrorIs(t, h.sh.Exec(ctx, "/name   "), xim.ErrValidation)

	require.NoError(t, h.sh.Exec(ctx, "/to alice"))
	assert.ErrorIs(t, h.sh.Exec(ctx, "hi"), xim.ErrNoIdentity)

	err := h.sh.Exec(ctx, "/teleport mars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command /teleport")

	err = h.sh.Exec(ctx, "/open "+filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Error(t, h.sh.Exec(ctx, "/open"))
}

func TestShell_OpenThenSend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\r\nsecond"), 0o600))

	require.NoError(t, h.sh.Exec(ctx, "/name alice"))
	require.NoError(t, h.sh.Exec(ctx, "/open "+path))
	h.waitOutput(t, "* loaded "+path)
	assert.Equal(t, "first\nsecond\n", h.sh.draft)

	assert.ErrorIs(t, h.sh.Exec(ctx, "/send"), errNoRecipient)
	require.NoError(t, h.sh.Exec(ctx, "/to alice"))
	require.NoError(t, h.sh.Exec(ctx, "/send"))
	h.waitOutput(t, "<alice> first\nsecond\n")
	assert.False(t, h.sh.hasDraft)

	require.NoError(t, h.sh.Exec(ctx, "/opensend "+path))
	assert.Eventually(t, func() bool { return h.m.GetMetrics().Received == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestShell_Stats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sh.Exec(ctx, "/name alice"))

	out := h.sh.stats(ctx)
	assert.Contains(t, out, "Metric")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "delivered")
}

func TestShell_RunStopsAtQuit(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("/name carol\n/to carol\n/quit\nnever sent\n")

	require.NoError(t, h.sh.Run(context.Background(), in))
	name, ok := h.m.CurrentUsername()
	assert.True(t, ok)
	assert.Equal(t, "carol", name)
	assert.Zero(t, h.m.GetMetrics().Sent)
}

func TestShell_RunReportsErrorsAndContinues(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("orphan line\n/name dave\n")

	require.NoError(t, h.sh.Run(context.Background(), in))
	h.waitOutput(t, "! "+errNoRecipient.Error())
	name, _ := h.m.CurrentUsername()
	assert.Equal(t, "dave", name)
}
