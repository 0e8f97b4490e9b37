package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

type command struct {
	usage   string
	minArgs int
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"notebooks": {"notebooks", 0, (*App).cmdNotebooks},
	"use":       {"use <notebook>", 1, (*App).cmdUse},
	"ls":        {"ls [item]", 0, (*App).cmdList},
	"tree":      {"tree [item]", 0, (*App).cmdTree},
	"new":       {"new <kind> <parent> [title]", 2, (*App).cmdNew},
	"title":     {"title <item> <text>", 2, (*App).cmdTitle},
	"content":   {"content <item> [text]", 1, (*App).cmdContent},
	"tags":      {"tags <item> <a,b,c>", 1, (*App).cmdTags},
	"trash":     {"trash <item> [off]", 1, (*App).cmdTrash},
	"mv":        {"mv <item> <parent>", 2, (*App).cmdMove},
	"rm":        {"rm [-up] <item>", 1, (*App).cmdRemove},
	"show":      {"show <item>", 1, (*App).cmdShow},
	"path":      {"path <item>", 1, (*App).cmdPath},
	"sort":      {"sort <title|created|updated> [desc]", 1, (*App).cmdSort},
	"changes":   {"changes", 0, (*App).cmdChanges},
	"remotes":   {"remotes", 0, (*App).cmdRemotes},
	"addremote": {"addremote <name> <type> [json]", 2, (*App).cmdAddRemote},
	"rmremote":  {"rmremote <remote>", 1, (*App).cmdRemoveRemote},
	"reorder":   {"reorder <remote>...", 1, (*App).cmdReorder},
	"connect":   {"connect <remote>", 1, (*App).cmdConnect},
	"pull":      {"pull [remote]", 0, (*App).cmdPull},
	"push":      {"push [remote]", 0, (*App).cmdPush},
	"forcepull": {"forcepull [remote]", 0, (*App).cmdForcePull},
	"forcepush": {"forcepush [remote]", 0, (*App).cmdForcePush},
	"sync":      {"sync [remote]", 0, (*App).cmdSync},
	"status":    {"status", 0, (*App).cmdStatus},
	"stats":     {"stats", 0, (*App).cmdStats},
}

func usage() string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s\n", commands[n].usage)
	}
	b.WriteString("  help\n  exit | quit")
	return b.String()
}

// runREPL reads commands until EOF or exit. Command errors are printed and
// do not end the loop.
func runREPL(ctx context.Context, a *App, promptFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(promptFn())
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("Error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(usage())
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		cmd, ok := commands[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if len(args) < cmd.minArgs {
			printlnFn("Usage:", cmd.usage)
			continue
		}
		if err := cmd.run(a, ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
