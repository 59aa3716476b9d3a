// Command shiikac is the test-harness CLI for the compiler core: it runs
// the pipeline stages over a source file and dumps the result of each
// (the real driver and code generator are external collaborators).
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shiika-lang/shiika-go/internal/ast"
	"github.com/shiika-lang/shiika-go/internal/async"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/hir"
	"github.com/shiika-lang/shiika-go/internal/lexer"
	"github.com/shiika-lang/shiika-go/internal/mir"
	"github.com/shiika-lang/shiika-go/internal/parser"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	root := &cobra.Command{
		Use:           "shiikac",
		Short:         "shiika compiler core harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(lexCmd(), parseCmd(), hirCmd(), mirCmd(), replCmd())
	if err := root.Execute(); err != nil {
		printErr(err)
		os.Exit(1)
	}
}

var errColor = color.New(color.FgRed, color.Bold)

func printErr(err error) {
	if rep, ok := err.(*sherrors.Report); ok {
		errColor.Fprintf(os.Stderr, "%s [%s]", rep.Kind, rep.Code)
		fmt.Fprintf(os.Stderr, " %s: %s\n", rep.Span, rep.Message)
		for _, n := range rep.Notes {
			fmt.Fprintf(os.Stderr, "  note: %s\n", n)
		}
		return
	}
	errColor.Fprint(os.Stderr, "error")
	fmt.Fprintf(os.Stderr, ": %s\n", err)
}

func readSource(args []string) ([]byte, string, error) {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return src, args[0], nil
}

func lexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lex <file>",
		Short: "dump the token stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, file, err := readSource(args)
			if err != nil {
				return err
			}
			l := lexer.New(string(lexer.Normalize(src)), file)
			for {
				tok, lerr := l.NextToken()
				if lerr != nil {
					return lerr
				}
				if tok.Type == lexer.EOF {
					return nil
				}
				fmt.Printf("%d:%d\t%s\t%q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
			}
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "dump the AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, file, err := readSource(args)
			if err != nil {
				return err
			}
			prog, perr := parser.New(src, file).ParseProgram()
			if perr != nil {
				return perr
			}
			fmt.Print(ast.PrintProgram(prog))
			return nil
		},
	}
}

func elaborate(src []byte, file string) (*hir.Program, *typedict.SkTypes, *sherrors.Report) {
	prog, err := parser.New(src, file).ParseProgram()
	if err != nil {
		return nil, nil, err
	}
	dict, err := typedict.Index(prog)
	if err != nil {
		return nil, nil, err
	}
	h, err := hir.Elaborate(prog, dict)
	if err != nil {
		return nil, nil, err
	}
	return h, dict, nil
}

func hirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hir <file>",
		Short: "type-check and list the elaborated methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, file, err := readSource(args)
			if err != nil {
				return err
			}
			h, _, herr := elaborate(src, file)
			if herr != nil {
				return herr
			}
			bold := color.New(color.Bold)
			for _, fullname := range h.MethodOrder {
				m := h.Methods[fullname]
				bold.Print(fullname)
				fmt.Printf(" -> %s\n", m.RetTy)
			}
			fmt.Printf("toplevel: %s\n", h.Toplevel.Ty)
			return nil
		},
	}
}

func compileMIR(src []byte, file string, split bool) (*mir.Program, *sherrors.Report) {
	h, dict, err := elaborate(src, file)
	if err != nil {
		return nil, err
	}
	m := mir.Lower(h, dict)
	async.Infer(m)
	if split {
		async.Split(m)
	}
	if verr := mir.Verify(m); verr != nil {
		return nil, verr
	}
	return m, nil
}

func mirCmd() *cobra.Command {
	var noSplit bool
	cmd := &cobra.Command{
		Use:   "mir <file>",
		Short: "compile to verified MIR and dump it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, file, err := readSource(args)
			if err != nil {
				return err
			}
			m, merr := compileMIR(src, file, !noSplit)
			if merr != nil {
				return merr
			}
			fmt.Print(mir.PrintProgram(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSplit, "no-split", false, "stop before the async splitter")
	return cmd
}
