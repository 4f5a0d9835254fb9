package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
)

func newTestConsole(t *testing.T) (*console, *bytes.Buffer) {
	t.Helper()
	noColor, jsonOut, heapBase = true, false, 0
	cfg := heap.Config{Size: 16384, BlockSize: 64}
	r, err := heap.FromBytes(make([]byte, cfg.Size), cfg)
	require.NoError(t, err)
	a, err := alloc.New(r)
	require.NoError(t, err)
	var out bytes.Buffer
	return newConsole(a, &out), &out
}

func TestConsoleAllocWriteReadFree(t *testing.T) {
	c, out := newTestConsole(t)

	require.NoError(t, c.exec("alloc"))
	assert.Contains(t, out.String(), "0x000040")

	require.NoError(t, c.exec("write 0x40 0 48656c6c6f"))
	out.Reset()
	require.NoError(t, c.exec("read 0x40 0 5"))
	assert.Contains(t, out.String(), "48 65 6c 6c 6f")
	assert.Contains(t, out.String(), "|Hello|")

	require.NoError(t, c.exec("free 0x40"))
	require.ErrorIs(t, c.exec("free 0x40"), alloc.ErrDoubleFree)
	require.Error(t, c.exec("read 0x40"))
}

func TestConsoleArgumentErrors(t *testing.T) {
	c, _ := newTestConsole(t)
	require.NoError(t, c.exec("alloc 2"))

	tests := []string{
		"free",
		"free zz",
		"alloc x",
		"write 0x40 0",
		"write 0x40 0 zz",
		"write 0x40 60 00",
		"read 0x40 99",
		"bogus",
	}
	for _, line := range tests {
		require.Error(t, c.exec(line), line)
	}
	require.ErrorIs(t, c.exec("alloc 0"), alloc.ErrInvalidArgument)
	require.ErrorIs(t, c.exec("free 0x40 1"), alloc.ErrInvalidArgument)
	require.NoError(t, c.exec(""))
}

func TestConsoleDefragAndCheck(t *testing.T) {
	c, out := newTestConsole(t)
	require.NoError(t, c.exec("alloc"))
	require.NoError(t, c.exec("alloc 2"))
	require.NoError(t, c.exec("free 0x40"))
	out.Reset()

	require.NoError(t, c.exec("defrag"))
	assert.Contains(t, out.String(), "0x00000080 -> 0x00000040  2 blocks")
	require.NoError(t, c.exec("check"))
	require.NoError(t, c.exec("stats"))
	require.NoError(t, c.exec("map"))
}

func TestRunShellScript(t *testing.T) {
	c, out := newTestConsole(t)
	script := strings.Join([]string{
		"alloc 3",
		"bogus",
		"stats",
		"quit",
		"alloc",
	}, "\n")
	require.NoError(t, runShell(c, strings.NewReader(script), false))
	assert.Contains(t, out.String(), "error: unknown command")
	assert.Contains(t, out.String(), "Used:              3 blocks")
	assert.Equal(t, int64(3), c.a.Allocated())
}

func TestShellCommand(t *testing.T) {
	out, err := runShellInput(t, "alloc 2\nhelp\ntest multi\n")
	require.NoError(t, err)
	assert.Contains(t, out, "2 blocks")
	assert.Contains(t, out, "commands:")
	assert.Contains(t, out, "PASS multi")
}

func TestParseAddr(t *testing.T) {
	heapBase = 0x4000_0000
	t.Cleanup(func() { heapBase = 0 })

	a, err := parseAddr("0x40002040")
	require.NoError(t, err)
	assert.Equal(t, heap.Addr(0x2040), a)
	a, err = parseAddr("128")
	require.NoError(t, err)
	assert.Equal(t, heap.Addr(128), a)
	_, err = parseAddr("nope")
	require.Error(t, err)
}
