// Console chat client. Drives the full client state machine against a
// running relay server, persisting its snapshot to a local SQLite file
// so the session survives restarts.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"character-chat-server/internal/catalog"
	"character-chat-server/internal/client/relay"
	"character-chat-server/internal/client/store"
	"character-chat-server/internal/logger"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8000", "relay server base URL")
	snapshotPath := flag.String("snapshot", "chatcli.db", "path to the local snapshot database")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Encoding: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	relayClient := relay.NewClient(relay.ClientConfig{BaseURL: *baseURL}, log)

	repo, err := store.NewSQLiteSnapshotRepository(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to open snapshot store: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	st, err := store.New(relayClient, repo, catalog.All(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to restore state: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st.Bootstrap(ctx)

	fmt.Println("character chat console. Type 'help' for commands.")
	printStatus(st)

	scanner := bufio.NewScanner(os.Stdin)
	var activeCharacter string

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help":
			printHelp()

		case "characters":
			for _, ch := range st.Snapshot().Characters {
				liked := " "
				if ch.LikedByMe {
					liked = "*"
				}
				fmt.Printf("  [%s] %-10s %-20s likes=%d\n", liked, ch.ID, ch.Name, ch.Likes)
			}

		case "open":
			if rest == "" {
				fmt.Println("usage: open <character-id>")
				continue
			}
			sess := st.OpenSession(ctx, rest)
			if sess == nil {
				fmt.Println("unknown character:", rest)
				continue
			}
			activeCharacter = sess.CharacterID
			for _, msg := range sess.Messages {
				printMessage(msg)
			}

		case "say":
			if activeCharacter == "" {
				fmt.Println("open a chat first")
				continue
			}
			if rest == "" {
				fmt.Println("usage: say <dialogue>[**situation]")
				continue
			}
			before := messageCount(st, activeCharacter)
			if !st.SendMessage(ctx, activeCharacter, rest) {
				printModal(st)
				continue
			}
			for _, msg := range sessionMessages(st, activeCharacter)[before:] {
				printMessage(msg)
			}
			printModal(st)

		case "like":
			id := rest
			if id == "" {
				id = activeCharacter
			}
			if id == "" {
				fmt.Println("usage: like <character-id>")
				continue
			}
			st.ToggleLike(ctx, id)

		case "ad":
			if activeCharacter == "" {
				fmt.Println("open a chat first")
				continue
			}
			seconds := st.Snapshot().AdMinSeconds + 2
			if rest != "" {
				if n, convErr := strconv.Atoi(rest); convErr == nil {
					seconds = n
				}
			}
			if res := st.WatchAd(ctx, activeCharacter, seconds); !res.OK {
				fmt.Println("ad not counted:", res.Reason)
			} else {
				fmt.Println("ad watched, credits topped up")
			}

		case "register":
			user, pass, ok := splitCredentials(rest)
			if !ok {
				fmt.Println("usage: register <username> <password>")
				continue
			}
			if res := st.UpdateProfile(ctx, user, pass); !res.OK {
				fmt.Println("registration failed:", res.Reason)
			} else {
				fmt.Println("registered as", user)
			}

		case "login":
			user, pass, ok := splitCredentials(rest)
			if !ok {
				fmt.Println("usage: login <username> <password>")
				continue
			}
			if res := st.SignIn(ctx, user, pass); !res.OK {
				fmt.Println("login failed:", res.Reason)
			} else {
				fmt.Println("signed in as", user)
			}

		case "dismiss":
			if activeCharacter == "" {
				continue
			}
			st.HandleModalAction(ctx, activeCharacter, store.ActionLockChat)

		case "status":
			printStatus(st)

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error("Input error", zap.Error(err))
	}
}

func printHelp() {
	fmt.Println(`commands:
  characters                 list the catalog
  open <id>                  open (or resume) a chat
  say <text>[**situation]    send a message in the open chat
  like [id]                  toggle a like
  ad [seconds]               watch an ad for bonus credits
  register <user> <pass>     create an account
  login <user> <pass>        sign in
  dismiss                    close the gating modal, locking the chat
  status                     show credits and gating state
  quit`)
}

func printStatus(st *store.Store) {
	snap := st.Snapshot()
	who := "guest"
	if snap.IsRegistered && snap.Profile != nil {
		who = snap.Profile.Username
	}
	fmt.Printf("signed in: %s | credits: %d | global messages: %d\n",
		who, snap.CreditsRemaining, snap.GlobalMessageCount)
	printModalState(snap)
}

func printModal(st *store.Store) {
	printModalState(st.Snapshot())
}

func printModalState(snap store.State) {
	switch snap.ActiveModal.Kind {
	case store.ModalRegistration:
		fmt.Println("! register to keep chatting ('register <user> <pass>')")
	case store.ModalWatchAd:
		fmt.Println("! watch an ad to keep chatting ('ad')")
	case store.ModalEndOfChats:
		fmt.Println("! daily ad limit reached, come back tomorrow")
	}
}

func printMessage(msg store.ChatMessage) {
	if msg.Situation != "" {
		fmt.Printf("    (%s)\n", msg.Situation)
	}
	fmt.Printf("  %s: %s\n", msg.Sender, msg.Dialogue)
}

func sessionMessages(st *store.Store, characterID string) []store.ChatMessage {
	snap := st.Snapshot()
	if sess, ok := snap.Sessions[characterID]; ok && sess != nil {
		return sess.Messages
	}
	return nil
}

func messageCount(st *store.Store, characterID string) int {
	return len(sessionMessages(st, characterID))
}

func splitCredentials(rest string) (user, pass string, ok bool) {
	user, pass, ok = strings.Cut(rest, " ")
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	return user, pass, ok && user != "" && pass != ""
}
