package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Login(ctx context.Context) error
	SignUp(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	OAuth(ctx context.Context, provider string) error
	Callback(ctx context.Context, input string) error
	Skip(ctx context.Context) error

	Send(ctx context.Context, text string) error
	NewChat(ctx context.Context) error
	AttachImage(ctx context.Context, path string) error
	RemoveImage(ctx context.Context) error
	Recommendations(ctx context.Context) error
	Browse(ctx context.Context, topic string) error
	History(ctx context.Context, search string) error
	Open(ctx context.Context, n string) error
	Rename(ctx context.Context, n, title string) error
	Delete(ctx context.Context, n string) error
	Status(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	loginHelp = "Available commands: login, signup, reset, oauth <google|github>, callback <url>, skip, exit"
	chatHelp  = "Type a message to chat, or: /new, /image <path>, /noimage, /recs, /browse [topic], " +
		"/history [search], /open <n>, /rename <n> <title>, /delete <n>, /status, /logout, /exit"
)

// runREPL starts the read–eval–print loop for the gophchat CLI.
//
// The prompt shows the current status (from statusFn). While nobody is
// signed in the first token of a line is a login-screen command:
//
//	help | login | signup | reset | oauth <provider> | callback <url> | skip | exit | quit
//
// Once signed in, a line starting with "/" is a chat command and any other
// non-blank line is sent as a message:
//
//	/help /new /image /noimage /recs /browse /history /open /rename
//	/delete /status /logout /exit /quit
//
// Errors returned by command handlers are printed and the loop goes on. It
// exits on EOF, on exit or quit, or when ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gc> %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if line == "" {
			continue
		}

		var quit bool
		if a.isLoggedIn() {
			quit, err = chatCommand(ctx, a, line)
		} else {
			quit, err = loginCommand(ctx, a, line)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
		if quit {
			printlnFn("Bye!")
			return
		}
	}
}

func loginCommand(ctx context.Context, a execIface, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "help":
		printlnFn(loginHelp)
	case "login":
		return false, a.Login(ctx)
	case "signup", "register":
		return false, a.SignUp(ctx)
	case "reset":
		return false, a.ResetPassword(ctx)
	case "oauth":
		return false, a.OAuth(ctx, arg)
	case "callback":
		return false, a.Callback(ctx, arg)
	case "skip":
		return false, a.Skip(ctx)
	case "exit", "quit":
		return true, nil
	default:
		printlnFn("Unknown command:", cmd)
	}
	return false, nil
}

func chatCommand(ctx context.Context, a execIface, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, a.Send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/help":
		printlnFn(chatHelp)
	case "/new":
		return false, a.NewChat(ctx)
	case "/image":
		return false, a.AttachImage(ctx, arg)
	case "/noimage":
		return false, a.RemoveImage(ctx)
	case "/recs":
		return false, a.Recommendations(ctx)
	case "/browse":
		return false, a.Browse(ctx, arg)
	case "/history":
		return false, a.History(ctx, arg)
	case "/open":
		return false, a.Open(ctx, arg)
	case "/rename":
		n, title, _ := strings.Cut(arg, " ")
		return false, a.Rename(ctx, n, title)
	case "/delete":
		return false, a.Delete(ctx, arg)
	case "/status":
		return false, a.Status(ctx)
	case "/logout":
		return false, a.Logout(ctx)
	case "/exit", "/quit":
		return true, nil
	default:
		printlnFn("Unknown command:", cmd)
	}
	return false, nil
}
