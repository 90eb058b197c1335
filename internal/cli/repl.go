package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Drafts(ctx context.Context) error
	Show(ctx context.Context, ref string) error
	Compose(ctx context.Context) error
	Edit(ctx context.Context, ref string) error
	Reply(ctx context.Context, ref string) error
	Read(ctx context.Context, ref string) error
	Resolve(ctx context.Context, ref string) error
	Archive(ctx context.Context, ref string) error
	Rescan(ctx context.Context) error
	Dismiss(ctx context.Context) error
}

const helpText = "Available commands: (l)ist, drafts, show <ref>, compose, edit <ref>, reply <ref>, " +
	"read <ref>, resolve <ref>, archive <ref>, rescan, dismiss, exit"

// runREPL starts a read–eval–print loop over the message store.
//
// It reads a line from reader, parses the first token as the
// command, and dispatches to methods on 'a'. A <ref> is either the number
// shown by the last listing or a message ID (a unique prefix is enough).
// Command handlers prompt through the same reader, so input is never
// buffered twice. The loop exits on EOF or when the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("amp> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		ref := ""
		if len(parts) > 1 {
			ref = parts[1]
		}

		needsRef := func() bool {
			if ref == "" {
				printlnFn(fmt.Sprintf("Usage: %s <ref>", cmd))
				return false
			}
			return true
		}

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "l", "list":
			_ = a.List(ctx)

		case "drafts":
			_ = a.Drafts(ctx)

		case "show":
			if needsRef() {
				_ = a.Show(ctx, ref)
			}

		case "compose":
			_ = a.Compose(ctx)

		case "edit":
			if needsRef() {
				_ = a.Edit(ctx, ref)
			}

		case "reply":
			if needsRef() {
				_ = a.Reply(ctx, ref)
			}

		case "read":
			if needsRef() {
				_ = a.Read(ctx, ref)
			}

		case "resolve":
			if needsRef() {
				_ = a.Resolve(ctx, ref)
			}

		case "archive":
			if needsRef() {
				_ = a.Archive(ctx, ref)
			}

		case "rescan":
			_ = a.Rescan(ctx)

		case "dismiss":
			_ = a.Dismiss(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
