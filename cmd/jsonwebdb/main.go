// Command jsonwebdb is a small command line client for JsonWebDB services.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dan-strohschein/jsonwebdb-driver/client"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	var err error
	switch command := args[0]; command {
	case "ping":
		err = handlePing(args[1:])
	case "describe":
		err = handleDescribe(args[1:])
	case "query":
		err = handleQuery(args[1:])
	case "sql":
		err = handleSQL(args[1:])
	case "call":
		err = handleCall(args[1:])
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "jsonwebdb v%s\n", client.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		printError(fmt.Sprintf("Unknown command: %s", command))
		printUsage()
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		printError(err.Error())
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(stdout, colorBold(colorCyan("JsonWebDB CLI"))+" - query a JsonWebDB service from the shell\n")
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintln(stdout, "  jsonwebdb "+colorYellow("<command>")+" [options] [arguments]\n")
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  "+colorGreen("ping")+"       Connect, report the session timeout and disconnect")
	fmt.Fprintln(stdout, "  "+colorGreen("describe")+"   Show the columns of a table or view")
	fmt.Fprintln(stdout, "  "+colorGreen("query")+"      Select rows from a table")
	fmt.Fprintln(stdout, "  "+colorGreen("sql")+"        Run a select statement")
	fmt.Fprintln(stdout, "  "+colorGreen("call")+"       Call a stored procedure")
	fmt.Fprintln(stdout, "  "+colorGreen("version")+"    Show version information")
	fmt.Fprintln(stdout, "  "+colorGreen("help")+"       Show this help message\n")
	fmt.Fprintln(stdout, "Run '"+colorCyan("jsonwebdb <command> -h")+"' for the options of a command.\n")
	fmt.Fprintln(stdout, "Examples:")
	fmt.Fprintln(stdout, "  "+colorDim("# Ten highest paid employees"))
	fmt.Fprintln(stdout, "  jsonwebdb query -columns id,first_name,salary -order \"salary desc\" -limit 10 emp")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  "+colorDim("# Call a procedure with two bind values"))
	fmt.Fprintln(stdout, "  jsonwebdb call raise_salary id=7 pct=3.5")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Environment Variables:")
	fmt.Fprintln(stdout, "  JSONWEBDB_URL        Service endpoint (default: http://localhost:6502/jsonwebdb)")
	fmt.Fprintln(stdout, "  JSONWEBDB_USER       Username")
	fmt.Fprintln(stdout, "  JSONWEBDB_PASSWORD   Password")
	fmt.Fprintln(stdout, "  JSONWEBDB_LOG_LEVEL  Driver log level (default: WARN)")
	fmt.Fprintln(stdout, "  NO_COLOR             Disable colored output")
}
