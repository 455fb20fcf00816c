package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Faded(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	CloseNote(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Pin(ctx context.Context, args []string, pinned bool) error
	Delete(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Purge(ctx context.Context, args []string) error

	Tags(ctx context.Context) error
	TagAdd(ctx context.Context, args []string) error
	TagRename(ctx context.Context, args []string) error
	TagColor(ctx context.Context, args []string) error
	TagDelete(ctx context.Context, args []string) error
	Tag(ctx context.Context, args []string) error
	Untag(ctx context.Context, args []string) error

	Share(ctx context.Context, args []string) error
	Unshare(ctx context.Context, args []string) error
	Shares(ctx context.Context) error

	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Export(ctx context.Context) error
}

const helpText = `Notes:  list, faded, show <id>, close, add [title], edit <id> [title],
        pin <id>, unpin <id>, delete <id>, restore <id>, purge <id>
Tags:   tags, tag-add <name> [color], tag-rename <name> <new>,
        tag-color <name> <color>, tag-delete <name>, tag <id> <name>, untag <id> <name>
Shares: share <id> [days], unshare <id>, shares
Other:  sync, status, export, help, exit

Note ids may be shortened to any unique prefix.`

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Errors returned by handlers are reported to out and the loop goes on.
// The loop exits on EOF, when ctx is done, or when the user types "exit"
// or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(out, "zen %s> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			fmt.Fprintln(out, helpText)

		case "l", "list":
			cmdErr = a.List(ctx)
		case "faded":
			cmdErr = a.Faded(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "close":
			cmdErr = a.CloseNote(ctx)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "pin":
			cmdErr = a.Pin(ctx, args, true)
		case "unpin":
			cmdErr = a.Pin(ctx, args, false)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "restore":
			cmdErr = a.Restore(ctx, args)
		case "purge":
			cmdErr = a.Purge(ctx, args)

		case "tags":
			cmdErr = a.Tags(ctx)
		case "tag-add":
			cmdErr = a.TagAdd(ctx, args)
		case "tag-rename":
			cmdErr = a.TagRename(ctx, args)
		case "tag-color":
			cmdErr = a.TagColor(ctx, args)
		case "tag-delete":
			cmdErr = a.TagDelete(ctx, args)
		case "tag":
			cmdErr = a.Tag(ctx, args)
		case "untag":
			cmdErr = a.Untag(ctx, args)

		case "share":
			cmdErr = a.Share(ctx, args)
		case "unshare":
			cmdErr = a.Unshare(ctx, args)
		case "shares":
			cmdErr = a.Shares(ctx)

		case "sync":
			cmdErr = a.Sync(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "export":
			cmdErr = a.Export(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(out, "Error:", describe(cmdErr))
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}

// prompt is the status shown before every command.
func (a *App) prompt() string {
	state := "offline"
	if a.syncer.Online() {
		state = "online"
	}
	n, err := a.session.Queue.Len(context.Background())
	if err != nil || n == 0 {
		return fmt.Sprintf("(%s)", state)
	}
	return fmt.Sprintf("(%s, %d pending)", state, n)
}
