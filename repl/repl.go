/*
File    : microperl/repl/repl.go

Package repl implements the Read-Eval-Print Loop for MicroPerl. The REPL
provides an interactive environment where users can:
- Enter MicroPerl code line by line
- See the stdout produced by running it to completion on the reference VM
- Navigate command history using arrow keys
- Receive colored feedback for different types of output

Each line is compiled and run as its own standalone program (its own
ENTER'd main frame, its own reference VM instance) rather than sharing
state across lines: MicroPerl's compiler is a pure function of source
text with no incremental-compilation mode, so a REPL session is a
convenience for trying one-liners, not a persistent interpreter session.
See DESIGN.md for why this is a deliberate simplification rather than an
oversight.
*/
package repl

import (
	"io"
	"strings"

	"github.com/ajokela/microperl/compiler"
	"github.com/ajokela/microperl/vm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// Color definitions for REPL output
// These colors provide visual feedback to enhance user experience:
// - blueColor: Decorative lines and separators
// - yellowColor: Expression results and version info
// - redColor: Error messages and warnings
// - greenColor: Banner and success messages
// - cyanColor: Informational messages and instructions
var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Repl represents the Read-Eval-Print Loop instance.
// It encapsulates all the configuration needed to run an interactive session.
type Repl struct {
	Banner  string // ASCII art banner displayed at startup
	Version string // Version string of the compiler
	Author  string // Author contact information
	Line    string // Separator line for visual formatting
	License string // Software license information
	Prompt  string // Command prompt shown to the user (e.g., "mpl >>> ")
}

// NewRepl creates and initializes a new REPL instance.
func NewRepl(banner string, version string, author string, line string, license string, prompt string) *Repl {
	return &Repl{Banner: banner, Version: version, Author: author, Line: line, License: license, Prompt: prompt}
}

// PrintBannerInfo displays the welcome banner and usage instructions.
func (r *Repl) PrintBannerInfo(writer io.Writer) {
	blueColor.Fprintf(writer, "%s\n", r.Line)
	greenColor.Fprintf(writer, "%s\n", r.Banner)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	yellowColor.Fprintln(writer, "Version: "+r.Version+" | Author: "+r.Author+" | License: "+r.License)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	cyanColor.Fprintf(writer, "%s\n", "Welcome to MicroPerl!")
	cyanColor.Fprintf(writer, "%s\n", "Type a statement and press enter")
	cyanColor.Fprintf(writer, "%s\n", "Type '.exit' to quit")
	cyanColor.Fprintf(writer, "%s\n", "Use up/down arrows to navigate command history")
	blueColor.Fprintf(writer, "%s\n", r.Line)
}

// Start begins the REPL main loop: read a line, compile it, run it to
// completion on a fresh reference VM, print its stdout.
func (r *Repl) Start(reader io.Reader, writer io.Writer) {
	r.PrintBannerInfo(writer)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			writer.Write([]byte("Good Bye!\n"))
			break
		}

		line = strings.Trim(line, " \n\t\r")
		if line == "" {
			continue
		}
		if line == ".exit" {
			writer.Write([]byte("Good Bye!\n"))
			break
		}

		rl.SaveHistory(line)
		r.executeWithRecovery(writer, line)
	}
}

// executeWithRecovery compiles and runs one line, reporting the first
// LexError/ParseError/CompileError or RuntimeError it hits in red and
// returning to the prompt rather than exiting, so one bad line doesn't
// end the session.
func (r *Repl) executeWithRecovery(writer io.Writer, line string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			redColor.Fprintf(writer, "[RUNTIME ERROR] %v\n", recovered)
		}
	}()

	module, err := compiler.Compile(line)
	if err != nil {
		redColor.Fprintf(writer, "%s\n", err)
		return
	}

	interp := vm.New(module)
	interp.Stdout = writer
	interp.Stdin = nil

	if err := interp.Run(); err != nil {
		redColor.Fprintf(writer, "%s\n", err)
	}
}
