// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command conc is a small driver that wires the source parser, the
// printf engine and the Value tree together end to end: read source,
// print the parsed tree, or exercise the printf VM directly against a
// format string and a list of source-parsed arguments. It is the
// "external collaborator" peripheral to the runtime itself -- not an
// opcode dispatcher or a dict-based evaluator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/tinfil/conc/numio"
	"github.com/tinfil/conc/parsevm"
	"github.com/tinfil/conc/srcparser"
	"github.com/tinfil/conc/value"
)

func main() {
	quoted := flag.Bool("q", false, "print parsed values quoted (%V instead of %v)")
	format := flag.String("format", "", "run the printf VM with this format string against the remaining arguments")
	rulesPath := flag.String("rules", "", "load a custom tokenizer rule table from a YAML RuleSpec file and print its raw tokens instead of parsing source")
	flag.Parse()

	var err error
	switch {
	case *rulesPath != "":
		err = runCustomRules(*rulesPath, flag.Args())
	case *format != "":
		err = runFormat(*format, flag.Args())
	default:
		err = runParse(flag.Args(), *quoted)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readAll concatenates stdin or the named files, "-" meaning stdin,
// no args meaning stdin, matching cmd/dump's convention.
func readAll(args []string) ([]byte, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	var out []byte
	for _, arg := range args {
		var in io.Reader
		if arg == "-" {
			in = os.Stdin
		} else {
			f, err := os.Open(arg)
			if err != nil {
				return nil, fmt.Errorf("can't open %q: %w", arg, err)
			}
			defer f.Close()
			in = f
		}
		b, err := io.ReadAll(bufio.NewReader(in))
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", arg, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

func runParse(args []string, quoted bool) error {
	src, err := readAll(args)
	if err != nil {
		return err
	}
	vals, err := parseSource(src)
	if err != nil {
		return err
	}
	conv := "v"
	if quoted {
		conv = "V"
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, v := range vals {
		s, err := numio.Sprintf("%"+conv, numio.NewArgs([]value.Value{v}))
		if err != nil {
			return fmt.Errorf("formatting result: %w", err)
		}
		fmt.Fprintln(w, s)
	}
	return nil
}

func parseSource(src []byte) ([]value.Value, error) {
	p := srcparser.NewParser()
	if err := p.Feed(src); err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}
	if err := p.Finish(); err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}
	return p.Values(), nil
}

// runFormat parses each of args as a standalone source value (so
// "42", "3.5", "0x1.fp+3" and `"quoted string"` all work) and drives
// the printf VM's format string against the resulting argument list.
func runFormat(format string, args []string) error {
	vals := make([]value.Value, len(args))
	for i, a := range args {
		parsed, err := parseSource([]byte(a))
		if err != nil {
			return fmt.Errorf("argument %d (%q): %w", i, a, err)
		}
		if len(parsed) != 1 {
			return fmt.Errorf("argument %d (%q): expected exactly one value, got %d", i, a, len(parsed))
		}
		vals[i] = parsed[0]
	}
	out, err := numio.Sprintf(format, numio.NewArgs(vals))
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	fmt.Println(out)
	return nil
}

// runCustomRules loads a declarative parsevm.RuleSpec from a YAML
// file and tokenizes the input with it, printing one raw token per
// line. Unlike the default mode it never builds a value.Value tree --
// a custom rule table has no grammar binding it to the source
// language's builder.
func runCustomRules(path string, args []string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rule file %q: %w", path, err)
	}
	var spec parsevm.RuleSpec
	if err := yaml.Unmarshal(doc, &spec); err != nil {
		return fmt.Errorf("parsing rule file %q: %w", path, err)
	}
	rules, err := spec.Build()
	if err != nil {
		return fmt.Errorf("building rules from %q: %w", path, err)
	}
	src, err := readAll(args)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	_, err = parsevm.Eval(rules, src, nil, func(tok []byte) int {
		fmt.Fprintf(w, "%s\n", tok)
		return 0
	}, func(tok []byte) int {
		fmt.Fprintf(w, "%s\n", tok)
		return 0
	})
	if err != nil {
		return fmt.Errorf("tokenizing with custom rules: %w", err)
	}
	return nil
}
