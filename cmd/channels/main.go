// Package main implements the channel registry CLI: add, remove, and
// list the channels the crawler watches.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tgindex/core/engine/registry"
)

func main() {
	registryPath := flag.String("registry", "configs/channels.json", "channel registry path")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	reg, err := registry.Open(*registryPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "channels:", err)
		os.Exit(1)
	}

	var cmdErr error
	switch args[0] {
	case "add":
		cmdErr = runAdd(reg, args[1:])
	case "remove":
		cmdErr = runRemove(reg, args[1:])
	case "list":
		runList(reg)
	default:
		usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, "channels:", cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: channels [--registry path] add <channel_id> [--username u] [--title t] | remove <channel_id> | list")
}

func runAdd(reg *registry.Registry, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	username := fs.String("username", "", "channel username")
	title := fs.String("title", "", "channel title")
	addedAt := fs.String("added-at", "", "ISO-8601 added-at timestamp")
	if len(args) == 0 {
		return fmt.Errorf("add requires a channel_id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid channel_id %q: %w", args[0], err)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	return reg.Add(registry.Channel{
		ChannelID: id,
		Username:  *username,
		Title:     *title,
		Enabled:   true,
		AddedAt:   *addedAt,
	})
}

func runRemove(reg *registry.Registry, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("remove requires a channel_id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid channel_id %q: %w", args[0], err)
	}
	ok, err := reg.Remove(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("channel %d not found", id)
	}
	return nil
}

func runList(reg *registry.Registry) {
	for _, ch := range reg.List() {
		fmt.Printf("%d\t%s\t%s\tenabled=%t\n", ch.ChannelID, ch.Username, ch.Title, ch.Enabled)
	}
}
