package main

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m confirmModel, msgs ...tea.Msg) confirmModel {
	t.Helper()
	var model tea.Model = m
	for _, msg := range msgs {
		model, _ = model.Update(msg)
	}
	out, ok := model.(confirmModel)
	require.True(t, ok)
	return out
}

func TestConfirm_UploadDirectly(t *testing.T) {
	m := press(t, newConfirmModel([]string{"a.mp3", "b.mp3"}), runeKey("U"))
	assert.True(t, m.done)
	assert.True(t, m.confirmed)
}

func TestConfirm_LowercaseKeys(t *testing.T) {
	m := press(t, newConfirmModel([]string{"a.mp3"}), runeKey("l"), runeKey("u"))
	assert.True(t, m.confirmed)
}

func TestConfirm_ListThenUpload(t *testing.T) {
	m := newConfirmModel([]string{"a.mp3", "b.mp3"})
	assert.Contains(t, m.View(), "Found 2 files")

	m = press(t, m, runeKey("L"))
	assert.False(t, m.done)
	assert.Equal(t, listView, m.view)
	assert.Contains(t, m.View(), " - a.mp3")
	assert.Contains(t, m.View(), " - b.mp3")

	m = press(t, m, runeKey("U"))
	assert.True(t, m.confirmed)
}

func TestConfirm_AnythingElseAborts(t *testing.T) {
	for _, msg := range []tea.Msg{runeKey("x"), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyCtrlC}} {
		m := press(t, newConfirmModel([]string{"a.mp3"}), msg)
		assert.True(t, m.done)
		assert.False(t, m.confirmed)
	}

	// a second L is not an upload
	m := press(t, newConfirmModel([]string{"a.mp3"}), runeKey("L"), runeKey("L"))
	assert.True(t, m.done)
	assert.False(t, m.confirmed)
}

func TestConfirm_ScrollDoesNotDecide(t *testing.T) {
	paths := make([]string, 40)
	for i := range paths {
		paths[i] = fmt.Sprintf("track-%02d.mp3", i)
	}

	m := press(t, newConfirmModel(paths), runeKey("L"), tea.KeyMsg{Type: tea.KeyPgDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, m.done)
	assert.Greater(t, m.viewport.YOffset, 0)
	assert.Contains(t, m.View(), "scroll")

	m = press(t, m, runeKey("U"))
	assert.True(t, m.confirmed)
}

func TestConfirm_WindowResize(t *testing.T) {
	m := press(t, newConfirmModel(make([]string, 40)), tea.WindowSizeMsg{Width: 100, Height: 12})
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 6, m.viewport.Height)
}
