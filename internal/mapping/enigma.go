package mapping

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("mapping: syntax error")

// ReadEnigma parses mappings in the Enigma text format. Nesting is by
// leading tabs:
//
//	CLASS obf/A pkg/Widget
//		FIELD a count Lobf/B;
//		METHOD b run (I)V
//			ARG 1 times
//		CLASS c Inner
//
// The deobfuscated name of a CLASS or METHOD line may be omitted when only
// its members or arguments are mapped.
func ReadEnigma(r io.Reader) (*Store, error) {
	s := NewStore()
	var (
		classes []*ClassMapping // classes[d] is the class at depth d
		method  *MethodMapping
		methodD = -1
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \r")
		depth := len(text) - len(strings.TrimLeft(text, "\t"))
		fields := strings.Fields(text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") || fields[0] == "COMMENT" {
			continue
		}
		if depth > len(classes) {
			return nil, fmt.Errorf("%w: line %d: indented too deep", ErrSyntax, line)
		}
		classes = classes[:depth]
		if depth > 0 && classes[depth-1] == nil && fields[0] != "ARG" {
			return nil, fmt.Errorf("%w: line %d: %s inside METHOD", ErrSyntax, line, fields[0])
		}
		if depth <= methodD {
			method, methodD = nil, -1
		}

		switch fields[0] {
		case "CLASS":
			if len(fields) < 2 || len(fields) > 3 {
				return nil, fmt.Errorf("%w: line %d: CLASS wants 1 or 2 names", ErrSyntax, line)
			}
			deobf := ""
			if len(fields) == 3 {
				deobf = fields[2]
			}
			var m *ClassMapping
			if depth == 0 {
				m = s.AddClass(fields[1], deobf)
			} else {
				if deobf != "" {
					deobf = lastSegment(deobf)
				}
				m = classes[depth-1].AddInner(lastSegment(fields[1]), deobf)
			}
			classes = append(classes, m)

		case "FIELD":
			if depth == 0 {
				return nil, fmt.Errorf("%w: line %d: FIELD outside CLASS", ErrSyntax, line)
			}
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: FIELD wants obf, deobf and descriptor", ErrSyntax, line)
			}
			classes[depth-1].AddField(fields[1], fields[3], fields[2])

		case "METHOD":
			if depth == 0 {
				return nil, fmt.Errorf("%w: line %d: METHOD outside CLASS", ErrSyntax, line)
			}
			var obf, deobf, desc string
			switch len(fields) {
			case 3:
				obf, desc = fields[1], fields[2]
			case 4:
				obf, deobf, desc = fields[1], fields[2], fields[3]
			default:
				return nil, fmt.Errorf("%w: line %d: METHOD wants obf, [deobf,] descriptor", ErrSyntax, line)
			}
			method = classes[depth-1].AddMethod(obf, desc, deobf)
			methodD = depth
			// Members of a method do not open a class level.
			classes = append(classes, nil)

		case "ARG":
			if method == nil || depth != methodD+1 {
				return nil, fmt.Errorf("%w: line %d: ARG outside METHOD", ErrSyntax, line)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: ARG wants index and name", ErrSyntax, line)
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("%w: line %d: bad ARG index %q", ErrSyntax, line, fields[1])
			}
			if method.Args == nil {
				method.Args = make(map[int]string)
			}
			method.Args[idx] = fields[2]

		default:
			return nil, fmt.Errorf("%w: line %d: unknown keyword %q", ErrSyntax, line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mapping: read: %w", err)
	}
	return s, nil
}

// lastSegment strips any package and outer class prefix from a nested class
// name written in full ("obf/A$b" → "b").
func lastSegment(name string) string {
	name = name[strings.LastIndexByte(name, '/')+1:]
	return name[strings.LastIndexByte(name, '$')+1:]
}

// WriteEnigma writes s in the Enigma text format, with classes and members
// in a stable order.
func WriteEnigma(w io.Writer, s *Store) error {
	bw := bufio.NewWriter(w)
	for _, name := range s.ClassNames() {
		writeEnigmaClass(bw, s.classes[name], 0)
	}
	return bw.Flush()
}

func writeEnigmaClass(w *bufio.Writer, m *ClassMapping, depth int) {
	indent := strings.Repeat("\t", depth)
	if m.Deobf != "" {
		fmt.Fprintf(w, "%sCLASS %s %s\n", indent, m.Obf, m.Deobf)
	} else {
		fmt.Fprintf(w, "%sCLASS %s\n", indent, m.Obf)
	}
	for _, k := range sortedKeys(m.Fields) {
		fmt.Fprintf(w, "%s\tFIELD %s %s %s\n", indent, k.Name, m.Fields[k], k.Descriptor)
	}
	for _, k := range sortedKeys(m.Methods) {
		mm := m.Methods[k]
		if mm.Deobf != "" {
			fmt.Fprintf(w, "%s\tMETHOD %s %s %s\n", indent, k.Name, mm.Deobf, k.Descriptor)
		} else {
			fmt.Fprintf(w, "%s\tMETHOD %s %s\n", indent, k.Name, k.Descriptor)
		}
		for _, i := range sortedArgs(mm.Args) {
			fmt.Fprintf(w, "%s\t\tARG %d %s\n", indent, i, mm.Args[i])
		}
	}
	inner := make([]string, 0, len(m.Inner))
	for n := range m.Inner {
		inner = append(inner, n)
	}
	sort.Strings(inner)
	for _, n := range inner {
		writeEnigmaClass(w, m.Inner[n], depth+1)
	}
}
