package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/maloquacious/semver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/frontend"
	"github.com/mehditeymorian/fidlgo/internal/irwriter"
)

const (
	compileUsage = "fidlgo compile <file.fidl>... [--json out.json]"
	checkUsage   = "fidlgo check <file.fidl>..."
)

// toolVersion is the fidlgo binary's own release version, independent of
// any IDL library's @available versioning data.
var toolVersion = semver.Version{Major: 0, Minor: 1, Patch: 0}

type cliExitError struct {
	code  int
	msg   string
	usage string
}

func (e *cliExitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.usage != "" {
		return e.usage
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr))
}

func run(args []string, fs afero.Fs, stdout, stderr io.Writer) int {
	args = expandResponseFiles(fs, args)

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	runID := uuid.New().String()
	entry := log.WithField("run_id", runID)

	cmd := newRootCmd(fs, entry, stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		var exitErr *cliExitError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				_, _ = fmt.Fprintln(stderr, exitErr.msg)
			}
			if exitErr.usage != "" {
				_, _ = fmt.Fprintln(stderr, strings.TrimSpace(exitErr.usage))
			}
			return exitErr.code
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		printUsage(stderr)
		return 1
	}
	return 0
}

// expandResponseFiles replaces every "@path" argument with the
// whitespace-separated contents of path, read through fs so tests can
// drive this against an in-memory filesystem. Expansion is single-pass:
// a response file's own contents are not themselves scanned for "@".
func expandResponseFiles(fs afero.Fs, args []string) []string {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "@") || len(a) == 1 {
			out = append(out, a)
			continue
		}
		data, err := afero.ReadFile(fs, a[1:])
		if err != nil {
			out = append(out, a)
			continue
		}
		out = append(out, strings.Fields(string(data))...)
	}
	return out
}

func newRootCmd(fs afero.Fs, log *logrus.Entry, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "fidlgo",
		Short:         "fidlgo IDL compiler frontend",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return &cliExitError{code: 1, usage: rootUsage()}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newCompileCmd(fs, log, stdout), newCheckCmd(fs, log, stdout), newVersionCmd(stdout))
	return root
}

func newCompileCmd(fs afero.Fs, log *logrus.Entry, stdout io.Writer) *cobra.Command {
	var jsonOut string
	cmd := &cobra.Command{
		Use:   "compile <file.fidl>...",
		Short: "Compile one or more FIDL-style source files to JSON IR",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &cliExitError{code: 1, msg: "usage: " + compileUsage}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.WithField("files", len(args)).Info("compile invocation started")
			inputs, err := loadInputs(fs, args)
			if err != nil {
				log.WithError(err).Error("failed to load input files")
				return &cliExitError{code: 1, msg: err.Error()}
			}

			result := frontend.Compile(inputs, frontend.Options{})
			diags := result.Reporter.Sorted()
			printDiagnostics(stdout, diags)

			if result.Reporter.HasErrors() {
				log.WithField("error_count", countErrors(diags)).Warn("compilation failed")
				return &cliExitError{code: 1}
			}

			out, err := irwriter.Write(result.Library)
			if err != nil {
				return &cliExitError{code: 2, msg: fmt.Sprintf("failed to serialise IR: %v", err)}
			}
			if jsonOut == "" {
				_, _ = stdout.Write(out)
				_, _ = fmt.Fprintln(stdout)
				return nil
			}
			if err := afero.WriteFile(fs, jsonOut, out, 0o644); err != nil {
				return &cliExitError{code: 1, msg: fmt.Sprintf("failed to write %s: %v", jsonOut, err)}
			}
			log.WithField("out", jsonOut).Info("compile invocation finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonOut, "json", "", "write the compiled IR to this path instead of stdout")
	return cmd
}

func newCheckCmd(fs afero.Fs, log *logrus.Entry, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file.fidl>...",
		Short: "Run the frontend without emitting IR",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &cliExitError{code: 1, msg: "usage: " + checkUsage}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := loadInputs(fs, args)
			if err != nil {
				return &cliExitError{code: 1, msg: err.Error()}
			}
			result := frontend.Compile(inputs, frontend.Options{})
			diags := result.Reporter.Sorted()
			printDiagnostics(stdout, diags)
			if result.Reporter.HasErrors() {
				log.WithField("error_count", countErrors(diags)).Warn("check failed")
				return &cliExitError{code: 1}
			}
			_, _ = fmt.Fprintln(stdout, "OK")
			return nil
		},
	}
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fidlgo binary version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(stdout, toolVersion.String())
			return nil
		},
	}
}

func loadInputs(fs afero.Fs, paths []string) ([]frontend.Input, error) {
	inputs := make([]frontend.Input, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		inputs = append(inputs, frontend.Input{Name: p, Data: data})
	}
	return inputs, nil
}

func countErrors(diags []diagnostics.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diagnostics.SeverityError {
			n++
		}
	}
	return n
}

func printDiagnostics(stdout io.Writer, diags []diagnostics.Diagnostic) {
	for _, d := range diags {
		sev := "ERROR"
		if d.Severity == diagnostics.SeverityWarning {
			sev = "WARN"
		}
		_, _ = fmt.Fprintf(stdout, "%s %s %s:%d:%d %s\n", sev, d.Code, d.File, d.Line, d.Column, d.Message)
		if d.Hint != "" {
			_, _ = fmt.Fprintf(stdout, "  hint: %s\n", d.Hint)
		}
		if d.Related != nil {
			_, _ = fmt.Fprintf(stdout, "  related: %s:%d:%d %s\n", d.Related.File, d.Related.Line, d.Related.Column, d.Related.Message)
		}
	}
}

func printUsage(stderr io.Writer) {
	_, _ = fmt.Fprintln(stderr, strings.TrimSpace(rootUsage()))
}

func rootUsage() string {
	return `Usage:
  ` + compileUsage + `
  ` + checkUsage + `
  fidlgo version`
}
