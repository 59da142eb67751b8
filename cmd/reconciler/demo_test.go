package main

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/vtest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDemoScenarios(t *testing.T) {
	errors.DisableColors()
	defer errors.EnableColors()

	var out bytes.Buffer
	require.NoError(t, runDemo(&out, discard(), nil))
	s := out.String()

	// Positional identity hands b's state to a.
	assert.Contains(t, s, "<li>a (mounted as b)</li><li>b (mounted as c)</li><li>c (mounted as c)</li>")
	// Keyed identity keeps it with the key.
	assert.Contains(t, s, "<li>a (mounted as a)</li><li>b (mounted as b)</li><li>c (mounted as c)</li>")
	assert.Contains(t, s, "last rendered 1, skipped 1")
	assert.Contains(t, s, "R004")
}

func TestDemoUnknownScenario(t *testing.T) {
	err := runDemo(io.Discard, discard(), []string{"nope"})
	var re *errors.ReconcilerError
	require.True(t, stderrors.As(err, &re))
	assert.Equal(t, "R050", re.Code)
}

func TestDemoCommandList(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"demo", "--list"})
	require.NoError(t, cmd.Execute())
	for _, sc := range scenarios {
		assert.Contains(t, out.String(), sc.name)
	}
}

func TestCodesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--no-color", "codes", "R003"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Duplicate key among siblings")
	errors.EnableColors()
}

func TestServeRejectsNonPositiveInterval(t *testing.T) {
	for _, iv := range []string{"0s", "-1s"} {
		t.Run(iv, func(t *testing.T) {
			cmd := rootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{"serve", "--interval=" + iv})

			err := cmd.Execute()
			var re *errors.ReconcilerError
			require.True(t, stderrors.As(err, &re), "got %v", err)
			assert.Equal(t, "R040", re.Code)
			assert.Contains(t, re.Detail, "--interval")
		})
	}
}

func TestBoardTickRotatesKeyedRows(t *testing.T) {
	b := newBoard("test", []string{"a", "b", "c"})
	h := vtest.Mount(t, b.App.Invoke(nil))
	h.ExpectContains("<ul><li>a (since tick 0)</li><li>b (since tick 0)</li><li>c (since tick 0)</li></ul>")

	h.Dispatch(b.tick)
	h.ExpectContains("<p>tick 1</p>")
	h.ExpectContains("<ul><li>c (since tick 0)</li><li>a (since tick 0)</li><li>b (since tick 0)</li></ul>")
	// Board rendered; the memoized header was skipped.
	assert.Equal(t, 1, h.LastPass().Skipped)
	h.ExpectNoFailures()
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", displayAddr(":8080"))
	assert.Equal(t, "127.0.0.1:9000", displayAddr("127.0.0.1:9000"))
	assert.True(t, strings.HasPrefix(displayAddr("[::1]:80"), "["))
}
