package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qshot/qsim"
	"qshot/report"
)

func TestLoadProgram(t *testing.T) {
	p, err := loadProgram("transport")
	require.NoError(t, err)
	assert.Equal(t, 4, p.NumQubits())

	_, err = loadProgram("nope")
	assert.ErrorContains(t, err, "unknown circuit")

	path := filepath.Join(t.TempDir(), "flip.qasm")
	require.NoError(t, os.WriteFile(path, []byte("qreg q[1];\ncreg c[1];\nx q[0];\nmeasure q -> c;\n"), 0o644))
	p, err = loadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.GateCount())

	_, err = loadProgram(filepath.Join(t.TempDir(), "missing.qasm"))
	assert.Error(t, err)
}

func TestQASMCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"qasm", "bell"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "cx q[0], q[1];")
}

func TestRunCommandPlain(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_PRETTY", "false")
	record := filepath.Join(t.TempDir(), "run.msgpack")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "bell", "--plain", "--shots", "64", "--seed", "3", "--memory", "--out", record})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "seed 3")

	f, err := os.Open(record)
	require.NoError(t, err)
	defer f.Close()
	rec, err := report.ReadMsgpack(f)
	require.NoError(t, err)
	assert.Equal(t, "bell", rec.Circuit)
	assert.Equal(t, 64, rec.Completed)
	assert.Len(t, rec.Memory, 64)
}

func TestRunCommandRejectsBadShots(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "bell", "--plain", "--shots", "0"})
	err := cmd.Execute()
	assert.ErrorIs(t, err, qsim.ErrConfig)
}

func TestRunCommandRequireSeed(t *testing.T) {
	t.Setenv("QSHOT_SEED", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "bell", "--plain", "--shots", "8", "--require-seed"})
	assert.ErrorIs(t, cmd.Execute(), qsim.ErrConfig)

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "bell", "--plain", "--shots", "8", "--require-seed", "--seed", "5"})
	assert.NoError(t, cmd.Execute())
}

func TestWriteAbort(t *testing.T) {
	var buf bytes.Buffer
	writeAbort(&buf, &qsim.ShotError{
		Shot:    7,
		Partial: qsim.Counts{"00": 4, "11": 3},
		Err:     qsim.ErrDomain,
	})
	out := buf.String()
	assert.Contains(t, out, "before shot 7 (7 shots)")
	assert.Contains(t, out, "00")
	assert.Contains(t, out, "11")
	assert.Contains(t, out, "57.14%")
}

func TestModelUpdate(t *testing.T) {
	canceled := 0
	m := newModel("bell", 100, func() { canceled++ })

	next, _ := m.Update(progressMsg{done: 40, total: 100})
	m = next.(Model)
	assert.Equal(t, 40, m.done)
	assert.Contains(t, m.View(), "40 / 100 shots")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.Equal(t, 1, canceled, "cancel fires once")
	assert.Contains(t, m.View(), "Canceling")

	res := &qsim.Result{Counts: qsim.Counts{"00": 45}, Requested: 100, Completed: 45}
	next, cmd := m.Update(runDoneMsg{res: res})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 45, m.done)
	assert.Same(t, res, m.res)
}
