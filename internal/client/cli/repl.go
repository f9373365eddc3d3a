package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Search(ctx context.Context, query string)
	Answer(ctx context.Context, query string)
	Upload(ctx context.Context, path string)
	TopK() int
	SetTopK(k int) error
	APIBase() string
	SetAPIBase(base string)
	Clear()
	StatusLine() string
}

const helpText = `Available commands:
  search <query>   find matching chunks
  answer <query>   ask for an answer with citations
  upload <path>    upload a document
  topk [n]         show or set the number of matches (1-50)
  api [url]        show or set the backend base address
  clear            clear previous results
  status           show the last status
  exit | quit      leave the program`

// runREPL starts a simple read–eval–print loop for the docqa CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and hands the rest of the line to methods on 'a'. Unknown
// commands are reported back to the user. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
// search, answer and upload report their outcome through the status
// channel, so the loop ignores their results.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner) {
	for {
		if p := promptFn(); p != "" {
			printlnFn(p)
		}
		if !scanner.Scan() {
			return
		}
		cmd, rest := splitCommand(scanner.Text())
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "search", "s":
			a.Search(ctx, rest)

		case "answer", "a":
			a.Answer(ctx, rest)

		case "upload", "u":
			a.Upload(ctx, rest)

		case "topk", "k":
			if rest == "" {
				printlnFn("top-k:", a.TopK())
				continue
			}
			k, err := strconv.Atoi(rest)
			if err != nil {
				printlnFn("Usage: topk <1-50>")
				continue
			}
			if err := a.SetTopK(k); err != nil {
				printlnFn(err.Error())
				continue
			}
			printlnFn("top-k:", a.TopK())

		case "api":
			if rest != "" {
				a.SetAPIBase(rest)
			}
			printlnFn("API base:", a.APIBase())

		case "clear":
			a.Clear()

		case "status":
			printlnFn(a.StatusLine())

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func splitCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	cmd = fields[0]
	return strings.ToLower(cmd), strings.TrimSpace(line[len(cmd):])
}
