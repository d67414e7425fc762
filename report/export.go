package report

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"qshot/qsim"
)

// Record is the serialized form of a run.
type Record struct {
	ID        string         `msgpack:"id"`
	Circuit   string         `msgpack:"circuit"`
	Counts    map[string]int `msgpack:"counts"`
	Requested int            `msgpack:"requested"`
	Completed int            `msgpack:"completed"`
	Seed      uint64         `msgpack:"seed"`
	Memory    []string       `msgpack:"memory,omitempty"`
	ElapsedMS int64          `msgpack:"elapsed_ms"`
	QASM      string         `msgpack:"qasm,omitempty"`
}

// NewRecord flattens a result together with the program that produced it.
func NewRecord(name string, p *qsim.Program, res *qsim.Result) Record {
	rec := Record{
		ID:        res.ID.String(),
		Circuit:   name,
		Counts:    map[string]int(res.Counts.Clone()),
		Requested: res.Requested,
		Completed: res.Completed,
		Seed:      res.Seed,
		Memory:    res.Memory,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if p != nil {
		rec.QASM = p.QASM()
	}
	return rec
}

// WriteMsgpack encodes rec to w.
func WriteMsgpack(w io.Writer, rec Record) error {
	if err := msgpack.NewEncoder(w).Encode(rec); err != nil {
		return fmt.Errorf("encoding run %s: %w", rec.ID, err)
	}
	return nil
}

// ReadMsgpack decodes one record from r.
func ReadMsgpack(r io.Reader) (Record, error) {
	var rec Record
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("decoding run record: %w", err)
	}
	return rec, nil
}
