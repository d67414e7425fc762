package qsim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled regexps for QASM parsing.
var (
	regDeclRegex   = regexp.MustCompile(`^(qreg|creg)\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureRegex   = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
	barrierRegex   = regexp.MustCompile(`^barrier(?:\s+(.+))?$`)
	gateRegex      = regexp.MustCompile(`^(\w+)\s+(.+)$`)
	operandRegex   = regexp.MustCompile(`^(\w+)(?:\s*\[\s*(\d+)\s*\])?$`)
	lineComment    = regexp.MustCompile(`//[^\n]*`)
	gateDefinition = regexp.MustCompile(`(?s)\bgate\s+[^{]*\{[^}]*\}`)
)

// QASM renders the program as OpenQASM 2.0, one instruction per line.
// Multi-qubit measurements are written as one measure statement per qubit.
func (p *Program) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	for _, r := range p.qregs {
		fmt.Fprintf(&sb, "qreg %s[%d];\n", r.Name, r.Size)
	}
	for _, r := range p.cregs {
		fmt.Fprintf(&sb, "creg %s[%d];\n", r.Name, r.Size)
	}
	sb.WriteString("\n")

	qubit := func(q int) string { return operandName(p.qregs, q) }
	for _, inst := range p.instructions {
		switch v := inst.(type) {
		case Gate:
			ops := make([]string, 0, len(v.Controls)+1)
			for _, c := range v.Controls {
				ops = append(ops, qubit(c))
			}
			ops = append(ops, qubit(v.Target))
			fmt.Fprintf(&sb, "%s %s;\n", strings.ToLower(string(v.Kind)), strings.Join(ops, ", "))
		case Barrier:
			var ops []string
			if len(v.Qubits) == 0 {
				for _, r := range p.qregs {
					ops = append(ops, r.Name)
				}
			}
			for _, q := range v.Qubits {
				ops = append(ops, qubit(q))
			}
			fmt.Fprintf(&sb, "barrier %s;\n", strings.Join(ops, ", "))
		case Measurement:
			for i, q := range v.Qubits {
				fmt.Fprintf(&sb, "measure %s -> %s;\n", qubit(q), operandName(p.cregs, v.Clbits[i]))
			}
		}
	}
	return sb.String()
}

// operandName renders a flat index as reg[i] using the register holding it.
func operandName(regs []Register, idx int) string {
	for _, r := range regs {
		if idx >= r.Offset && idx < r.Offset+r.Size {
			return fmt.Sprintf("%s[%d]", r.Name, idx-r.Offset)
		}
	}
	return fmt.Sprintf("?[%d]", idx)
}

// qasmParser resolves register operands while a program is being built.
type qasmParser struct {
	b     *Builder
	qregs map[string]Register
	cregs map[string]Register
}

// resolve maps an operand ("name" or "name[i]") to flat indices. A bare
// register name expands to the whole register.
func (ps *qasmParser) resolve(operand string, regs map[string]Register, kind string) ([]int, error) {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(operand))
	if m == nil {
		return nil, validationErrorf("malformed %s operand %q", kind, operand)
	}
	r, ok := regs[m[1]]
	if !ok {
		return nil, validationErrorf("undeclared %s register %q", kind, m[1])
	}
	if m[2] == "" {
		return r.All(), nil
	}
	i, _ := strconv.Atoi(m[2])
	if q := r.At(i); q >= 0 {
		return []int{q}, nil
	}
	return nil, validationErrorf("%s[%d] outside register of size %d", r.Name, i, r.Size)
}

func (ps *qasmParser) resolveAll(list string, regs map[string]Register, kind string) ([][]int, error) {
	var out [][]int
	for _, op := range strings.Split(list, ",") {
		idx, err := ps.resolve(op, regs, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// ParseQASM builds a program from the OpenQASM 2.0 subset written by
// Program.QASM: qreg/creg declarations, h, x, cx, ch, ccx, mcx, barrier and
// measure, including whole-register operands. Gate definition blocks are
// skipped. All errors wrap ErrValidation.
func ParseQASM(src string, opts ...BuildOption) (*Program, error) {
	src = lineComment.ReplaceAllString(src, "")
	src = gateDefinition.ReplaceAllString(src, "")

	ps := &qasmParser{
		b:     NewBuilder(),
		qregs: make(map[string]Register),
		cregs: make(map[string]Register),
	}
	for n, stmt := range strings.Split(src, ";") {
		stmt = strings.Join(strings.Fields(stmt), " ")
		if stmt == "" {
			continue
		}
		if err := ps.statement(stmt); err != nil {
			return nil, fmt.Errorf("statement %d (%q): %w", n+1, stmt, err)
		}
	}
	return ps.b.Build(opts...)
}

func (ps *qasmParser) statement(stmt string) error {
	lower := strings.ToLower(stmt)
	if strings.HasPrefix(lower, "openqasm") || strings.HasPrefix(lower, "include") {
		return nil
	}

	if m := regDeclRegex.FindStringSubmatch(stmt); m != nil {
		size, err := strconv.Atoi(m[3])
		if err != nil {
			return validationErrorf("register %s size %s: %v", m[2], m[3], err)
		}
		if m[1] == "qreg" {
			ps.qregs[m[2]] = ps.b.AddQubits(m[2], size)
		} else {
			ps.cregs[m[2]] = ps.b.AddClbits(m[2], size)
		}
		return ps.b.Err()
	}

	if m := measureRegex.FindStringSubmatch(stmt); m != nil {
		qs, err := ps.resolve(m[1], ps.qregs, "qubit")
		if err != nil {
			return err
		}
		cs, err := ps.resolve(m[2], ps.cregs, "classical")
		if err != nil {
			return err
		}
		return ps.b.AddMeasurement(Measurement{Qubits: qs, Clbits: cs})
	}

	if m := barrierRegex.FindStringSubmatch(stmt); m != nil {
		if m[1] == "" {
			return ps.b.AddBarrier()
		}
		groups, err := ps.resolveAll(m[1], ps.qregs, "qubit")
		if err != nil {
			return err
		}
		var qubits []int
		for _, g := range groups {
			qubits = append(qubits, g...)
		}
		return ps.b.AddBarrier(qubits...)
	}

	m := gateRegex.FindStringSubmatch(stmt)
	if m == nil {
		return validationErrorf("unrecognized statement")
	}
	kind := GateKind(strings.ToUpper(m[1]))
	arity, ok := controlArity[kind]
	if !ok {
		return validationErrorf("unsupported gate %q", m[1])
	}
	groups, err := ps.resolveAll(m[2], ps.qregs, "qubit")
	if err != nil {
		return err
	}

	// Single-qubit gates broadcast over a whole-register operand.
	if arity == 0 && len(groups) == 1 {
		for _, q := range groups[0] {
			g, err := NewGate(kind, q)
			if err != nil {
				return err
			}
			if err := ps.b.AddGate(g); err != nil {
				return err
			}
		}
		return nil
	}

	qubits := make([]int, 0, len(groups))
	for _, g := range groups {
		if len(g) != 1 {
			return validationErrorf("%s does not accept whole-register operands", m[1])
		}
		qubits = append(qubits, g[0])
	}
	target := qubits[len(qubits)-1]
	g, err := NewGate(kind, target, qubits[:len(qubits)-1]...)
	if err != nil {
		return err
	}
	return ps.b.AddGate(g)
}
