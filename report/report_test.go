package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qshot/qsim"
)

func sampleResult() *qsim.Result {
	return &qsim.Result{
		ID:        uuid.MustParse("6f1c2a52-9d0e-4c7b-8a51-1d3f4e5a6b7c"),
		Counts:    qsim.Counts{"1000": 512, "1100": 256, "0110": 256},
		Requested: 1024,
		Completed: 1024,
		Seed:      42,
		Workers:   4,
		Elapsed:   1500 * time.Millisecond,
	}
}

func TestCountTable(t *testing.T) {
	out := CountTable(sampleResult().Counts)
	for _, want := range []string{"outcome", "count", "share", "1000", "512", "50.00%", "0110", "25.00%"} {
		assert.Contains(t, out, want)
	}
	// Rows are in outcome order.
	assert.Less(t, strings.Index(out, "0110"), strings.Index(out, "1000"))
	assert.Less(t, strings.Index(out, "1000"), strings.Index(out, "1100"))
}

func TestCountTableEmpty(t *testing.T) {
	out := CountTable(qsim.Counts{})
	assert.Contains(t, out, "outcome")
}

func TestSummary(t *testing.T) {
	res := sampleResult()
	out := Summary("transport", res)
	assert.Contains(t, out, "transport")
	assert.Contains(t, out, "seed 42")
	assert.Contains(t, out, res.ID.String())
	assert.NotContains(t, out, "partial run")

	res.Completed = 300
	assert.Contains(t, Summary("transport", res), "partial run: 300 of 1024 shots")
}

func TestMsgpackRecord(t *testing.T) {
	b := qsim.NewBuilder()
	q := b.AddQubits("q", 1)
	c := b.AddClbits("c", 1)
	p, err := b.X(q.At(0)).Measure(q.All(), c.All()).Build()
	require.NoError(t, err)

	res, err := qsim.NewRunner().Run(context.Background(), p, qsim.RunConfig{
		Shots:  8,
		Seed:   qsim.SeedOf(1),
		Memory: true,
	})
	require.NoError(t, err)

	rec := NewRecord("flip", p, res)
	var buf bytes.Buffer
	require.NoError(t, WriteMsgpack(&buf, rec))

	got, err := ReadMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.ID.String(), got.ID)
	assert.Equal(t, "flip", got.Circuit)
	assert.Equal(t, map[string]int{"1": 8}, got.Counts)
	assert.Equal(t, 8, got.Completed)
	assert.Equal(t, uint64(1), got.Seed)
	assert.Len(t, got.Memory, 8)
	assert.Contains(t, got.QASM, "x q[0];")

	// The embedded QASM rebuilds the same circuit.
	back, err := qsim.ParseQASM(got.QASM)
	require.NoError(t, err)
	assert.Equal(t, p.GateCount(), back.GateCount())
}

func TestReadMsgpackGarbage(t *testing.T) {
	_, err := ReadMsgpack(strings.NewReader("\xc1"))
	assert.Error(t, err)
}
