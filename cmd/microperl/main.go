/*
File    : microperl/cmd/microperl/main.go

Package main is the entry point for the MicroPerl compiler driver. It is
an external collaborator to the core (spec.md section 1 explicitly puts
"the command-line driver and its flags" out of scope of the tested
contract) and provides:

1. REPL Mode (default): interactive compile-and-run loop
2. File Mode: compile a MicroPerl source file and either run it on the
   reference interpreter, write its encoded module image to standard
   output, or print a debug view (token dump / AST dump / disassembly) of it
3. Server Mode: a REPL reachable over TCP, one session per connection

The driver only calls the core's single exported entry points
(compiler.Compile, vm.New/Run, the lexer/ast/bytecode debug emitters);
it carries no language semantics of its own.
*/
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/ajokela/microperl/ast"
	"github.com/ajokela/microperl/bytecode"
	"github.com/ajokela/microperl/compiler"
	"github.com/ajokela/microperl/lexer"
	"github.com/ajokela/microperl/parser"
	"github.com/ajokela/microperl/repl"
	"github.com/ajokela/microperl/vm"
	"github.com/fatih/color"
)

// VERSION is the current version of the MicroPerl driver.
var VERSION = "v1.0.0"

// AUTHOR contains the contact information of the driver's maintainer.
var AUTHOR = "ajokela"

// LICENCE specifies the software license.
var LICENCE = "MIT"

// PROMPT is the command prompt displayed in REPL mode.
var PROMPT = "microperl >>> "

// BANNER is the ASCII art logo displayed when starting the REPL.
var BANNER = `
 __  __ _            ____           _
|  \/  (_) ___ _ __  |  _ \ ___ _ __| |
| |\/| | |/ __| '__| | |_) / _ \ '__| |
| |  | | | (__| |    |  __/  __/ |  | |
|_|  |_|_|\___|_|    |_|   \___|_|  |_|
`

// LINE is a separator line used for visual formatting in the REPL.
var LINE = "----------------------------------------------------------------"

var (
	redColor    = color.New(color.FgRed)
	yellowColor = color.New(color.FgYellow)
	cyanColor   = color.New(color.FgCyan)
)

// Usage:
//
//	microperl                     - start in REPL (interactive) mode
//	microperl <file.mpl>          - compile and run a MicroPerl source file
//	microperl -emit <file.mpl>    - compile and write the module image to stdout (no file is created)
//	microperl -disasm <file.mpl>  - compile and print a disassembly
//	microperl -tokens <file.mpl>  - print the token stream
//	microperl -ast <file.mpl>     - print the parsed AST
//	microperl server <port>       - start a REPL server
//	microperl --help              - display help information
//	microperl --version           - display version information
func main() {
	if len(os.Args) > 1 {
		arg := os.Args[1]

		switch arg {
		case "--help", "-h":
			showHelp()
			return
		case "--version", "-v":
			showVersion()
			return
		case "server":
			if len(os.Args) < 3 {
				redColor.Fprintf(os.Stderr, "[USAGE ERROR] missing port for server mode. Usage: microperl server <port>\n")
				os.Exit(1)
			}
			startServer(os.Args[2])
			return
		case "-emit":
			runMode(requireArg(2), emitModule)
			return
		case "-disasm":
			runMode(requireArg(2), emitDisasm)
			return
		case "-tokens":
			runMode(requireArg(2), emitTokens)
			return
		case "-ast":
			runMode(requireArg(2), emitAST)
			return
		}

		runFile(arg)
		return
	}

	repler := repl.NewRepl(BANNER, VERSION, AUTHOR, LINE, LICENCE, PROMPT)
	repler.Start(os.Stdin, os.Stdout)
}

func requireArg(i int) string {
	if len(os.Args) <= i {
		redColor.Fprintf(os.Stderr, "[USAGE ERROR] missing source file argument\n")
		os.Exit(1)
	}
	return os.Args[i]
}

func showHelp() {
	cyanColor.Println("MicroPerl - a Perl-flavored bytecode compiler")
	cyanColor.Println("")
	cyanColor.Println("USAGE:")
	yellowColor.Println("  microperl                    Start interactive REPL mode")
	yellowColor.Println("  microperl <file.mpl>         Compile and run a MicroPerl file")
	yellowColor.Println("  microperl -emit <file.mpl>   Compile and write the module image to stdout")
	yellowColor.Println("  microperl -disasm <file.mpl> Compile and print a disassembly")
	yellowColor.Println("  microperl -tokens <file.mpl> Print the token stream")
	yellowColor.Println("  microperl -ast <file.mpl>    Print the parsed AST")
	yellowColor.Println("  microperl server <port>      Start REPL server on specified port")
	yellowColor.Println("  microperl --help             Display this help message")
	yellowColor.Println("  microperl --version          Display version information")
}

func showVersion() {
	cyanColor.Println("MicroPerl - a Perl-flavored bytecode compiler")
	cyanColor.Printf("Version: %s\n", VERSION)
	cyanColor.Printf("License: %s\n", LICENCE)
	cyanColor.Printf("Author : %s\n", AUTHOR)
}

func readSource(fileName string) string {
	data, err := os.ReadFile(fileName)
	if err != nil {
		redColor.Fprintf(os.Stderr, "[FILE ERROR] could not read file '%s': %v\n", fileName, err)
		os.Exit(1)
	}
	return string(data)
}

// runFile compiles fileName and runs it to completion on the reference
// interpreter, matching the "out of scope" driver behavior spec.md
// section 1 describes: the core just exposes compile(); running it is
// this external collaborator's business.
func runFile(fileName string) {
	source := readSource(fileName)
	module, err := compiler.Compile(source)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	interp := vm.New(module)
	interp.Stdout = os.Stdout
	interp.Stdin = os.Stdin
	if err := interp.Run(); err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func runMode(fileName string, emit func(source string)) {
	emit(readSource(fileName))
}

func emitModule(source string) {
	module, err := compiler.Compile(source)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	data, err := module.Encode()
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

func emitDisasm(source string) {
	module, err := compiler.Compile(source)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Print(bytecode.Disassemble(module.Code))
}

func emitTokens(source string) {
	toks, err := lexer.All(source)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Print(lexer.DumpTokens(toks))
}

func emitAST(source string) {
	prog, err := parser.Parse(source)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Print(ast.Dump(prog))
}

// startServer listens on port and hands each connection its own REPL
// session, exactly like the teacher's TCP REPL server.
func startServer(port string) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		redColor.Fprintf(os.Stderr, "[SERVER ERROR] failed to start server on port %s: %v\n", port, err)
		os.Exit(1)
	}
	cyanColor.Printf("MicroPerl REPL server listening on :%s\n", port)
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			redColor.Fprintf(os.Stderr, "[SERVER ERROR] failed to accept connection: %v\n", err)
			continue
		}
		go handleClient(conn)
	}
}

func handleClient(conn net.Conn) {
	defer conn.Close()
	cyanColor.Printf("new client connected from %s\n", conn.RemoteAddr())
	repler := repl.NewRepl(BANNER, VERSION, AUTHOR, LINE, LICENCE, PROMPT)
	repler.Start(conn, conn)
	cyanColor.Printf("client disconnected from %s\n", conn.RemoteAddr())
}
