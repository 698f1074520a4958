package main

import (
	"flag"
	"fmt"
	"os"

	"charchat/pkg/store"
)

// Small operator tool: dump chats and their messages from a database
// directory. Run against a stopped server.
func main() {
	var p string
	var chatID string
	flag.StringVar(&p, "db", "", "database path to open")
	flag.StringVar(&chatID, "chat", "", "dump messages for a single chat")
	flag.Parse()
	if p == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}
	if err := store.Open(p); err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", p, err)
		os.Exit(1)
	}
	defer store.Close()

	if chatID != "" {
		dumpChat(chatID)
		return
	}

	chats, err := store.ListChats("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "list chats: %v\n", err)
		os.Exit(1)
	}
	for _, c := range chats {
		n, _ := store.CountMessages(c.ID)
		fmt.Printf("%s  user=%s  character=%s  messages=%d  title=%q\n", c.ID, c.UserID, c.CharacterID, n, c.Title)
	}
}

func dumpChat(id string) {
	msgs, err := store.ListMessages(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list messages: %v\n", err)
		os.Exit(1)
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.ID, m.Role, m.Content)
	}
}
