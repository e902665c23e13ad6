package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"blindchat/domain/wire"
	"blindchat/errors"
	"blindchat/transport/client"

	"github.com/gookit/color"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:4000", "Engine TCP address")
	name := flag.String("name", "", "Display name to announce")
	flag.Parse()

	input := bufio.NewReader(os.Stdin)

	// 1. Pick a display name
	displayName := *name
	for displayName == "" {
		color.Gray.Print("Display name: ")
		line, err := input.ReadString('\n')
		if err != nil {
			return err
		}
		displayName = strings.TrimSpace(line)
	}

	// 2. Connect & announce
	c, err := client.Dial(context.Background(), *addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Announce(displayName); err != nil {
		if errors.Is(err, errors.ErrInvalidUsername) {
			color.Red.Println("That name was refused, pick a single word without brackets.")
			return nil
		}
		return err
	}
	color.Green.Printf("Connected as %s, waiting for a partner...\n", displayName)

	// 3. Print incoming frames until the server hangs up
	go receiveLoop(c)

	// 4. Relay typed lines, intercepting the few local commands
	for {
		line, err := input.ReadString('\n')
		if err != nil {
			_ = c.Leave()
			return nil
		}
		line = strings.TrimRight(line, "\r\n")
		switch line {
		case "":
			continue
		case "/exit":
			_ = c.Leave()
			color.Gray.Println("Bye.")
			return nil
		case "/help":
			_ = c.Help()
		case "/history":
			_ = c.History()
		default:
			if err := c.Say(line); err != nil {
				return err
			}
		}
	}
}

func receiveLoop(c *client.Client) {
	for {
		f, err := c.Receive()
		if err != nil {
			color.Gray.Println("Connection closed.")
			os.Exit(0)
		}
		switch f.Kind {
		case wire.ChatFound:
			color.Cyan.Println("Partner found, say hi!")
		case wire.NoPartnerFound:
			color.Gray.Println("Still looking for a partner...")
		case wire.Help:
			printHelp()
		case wire.PartnerLeft:
			color.Yellow.Println("Your partner left, back in the queue.")
		case wire.PartnerDisconnected:
			color.Yellow.Println("Your partner dropped, back in the queue.")
		case wire.Text:
			fmt.Println(f.Body)
		}
	}
}

func printHelp() {
	color.Cyan.Println("Commands:")
	fmt.Println("  /help      this list")
	fmt.Println("  /history   your archived conversations")
	fmt.Println("  /exit      leave the chat")
}
